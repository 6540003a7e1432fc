// Package install registers the host with browsers.
//
// The manifest is written once beside the executable. Each browser is then
// pointed at it: through HKCU registry keys on Windows, or through a copy in
// the browser's per-user NativeMessagingHosts directory elsewhere.
package install
