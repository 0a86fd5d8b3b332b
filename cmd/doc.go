// Package cmd implements the command-line interface for invoicefetch.
//
// This package provides the following commands:
//   - fetch: Download the PDF attachments whose text contains a search string
//   - auth: Authorize Gmail access and store the OAuth token
//   - version: Display version information
//
// The fetch command is the default command when no subcommand is specified.
package cmd
