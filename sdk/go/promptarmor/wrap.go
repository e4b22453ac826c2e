package promptarmor

import "context"

// PromptFunc sends a prompt to a model and returns its reply.
type PromptFunc func(ctx context.Context, prompt string) (string, error)

// Wrap returns a PromptFunc that sanitizes the prompt before calling fn
// and restores placeholders in the reply. fn never sees a detected
// secret. On error the reply is still restored and returned with it.
func (c *Client) Wrap(fn PromptFunc, opts ...WrapOption) PromptFunc {
	var wcfg wrapConfig
	for _, o := range opts {
		o(&wcfg)
	}

	return func(ctx context.Context, prompt string) (string, error) {
		res := c.Sanitize(prompt)
		sent := res.Text
		if wcfg.legend && res.Changed() {
			sent = c.Legend() + "\n" + sent
		}

		reply, err := fn(ctx, sent)
		return c.Restore(reply), err
	}
}
