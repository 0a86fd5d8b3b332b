// Package pdftext extracts plain text from PDF attachments.
//
// Attachment bodies arrive base64url-encoded from Gmail. Extractor decodes them,
// hands the bytes to github.com/ledongthuc/pdf through a temporary file (or an
// in-memory reader) and returns the concatenated page text folded to lower case.
//
// Extraction never panics and never returns a partial result: any decoding,
// parsing or page error yields an Extraction whose Err is set and whose Text is
// empty. The temporary file is removed on every path.
package pdftext
