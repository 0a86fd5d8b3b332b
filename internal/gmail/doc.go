// Package gmail provides a client for the parts of the Gmail API used by invoicefetch.
//
// The client lists the messages matching a search query (following every result
// page), fetches full message payloads, and downloads attachment bodies that are
// not sent inline. Each API call is recorded as a google.gmail.<operation> span and
// counted in the google_api_operations_total metric.
//
// Authentication:
// NewClient obtains an oauth2.TokenSource from a google.TokenProvider, so the
// client works with a cached token file as well as a fixed access token.
//
// Example usage:
//
//	provider := google.NewFileTokenProvider("credentials.json", "token.json")
//	client, err := gmail.NewClient(ctx, provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := client.ListMessages(ctx, gmail.BuildQuery("2024/10/01", "2024/10/31", ""))
//	if err != nil {
//	    log.Fatal(err)
//	}
package gmail
