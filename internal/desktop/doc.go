// Package desktop implements the window, taskbar and icon collaborators on
// top of the Win32 API.
//
// Every call is synchronous and runs on the session goroutine. COM is
// initialised per call on a locked OS thread; nothing is cached between
// commands. Non-Windows builds compile to inert implementations so the host
// and its tests build everywhere.
package desktop
