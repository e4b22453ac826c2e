// Package promptarmor provides in-process secret redaction for Go
// programs that talk to hosted AI services. Secrets in prompts are
// replaced with {{LABEL_N}} placeholders before they leave the process
// and put back into the replies.
//
// Usage:
//
//	pa, err := promptarmor.New()
//	httpClient := &http.Client{Transport: pa.Transport(nil)}
//
// or, for SDKs that take a prompt string:
//
//	ask := pa.Wrap(myModelCall, promptarmor.WrapWithLegend())
//	reply, err := ask(ctx, "summarize the ticket from alice@example.com")
//
// A Client holds one vault for its lifetime. Placeholders minted by one
// call are restored by any later call on the same Client.
package promptarmor
