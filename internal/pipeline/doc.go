// Package pipeline implements the attachment filter that drives a fetch run.
//
// For every candidate message the pipeline selects the attachment parts that pass
// a PartFilter, retrieves their bodies (inline or through a separate attachment
// request), extracts the PDF text, and saves the attachment to the download folder
// when the text contains at least one search term.
//
// Each part ends in exactly one Status. A failure only ends the part, or the
// message when the message itself cannot be fetched; listing the candidates is the
// only failure that aborts a run. Processing is sequential.
package pipeline
