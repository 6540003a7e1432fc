// Package favicon resolves a page URL to a local .ico file.
//
// Icons are cached per domain under a single directory. A miss fetches a
// PNG from a favicon service, wraps it in an ICO container and stores it with
// a temp file + rename so readers never observe a partial icon.
package favicon
