// Package pim reads the canonical product record from the product
// information management system.
//
// A Client works over one logged-in session.Session. Use Login as the
// session's initializer so the credentials are posted once per run.
// FetchSnapshot resolves the language block selected by the record's
// languageID, reads title, bullets and approval status, and probes every
// video in the language's video list with ffprobe. DownloadGalleryArchive
// triggers the gallery export and picks the archive up either from the
// response body or from the download drop folder; RequestExport asks the
// PIM to push its copy to a marketplace locale.
package pim
