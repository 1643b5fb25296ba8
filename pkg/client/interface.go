package client

import "context"

// VisionClient sends a prompt plus one base64 image to a vision model.
type VisionClient interface {
	// SimpleQuery returns the model's free-form answer.
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	// QueryJSON returns the answer cleaned up by SanitizeJSON, ready to unmarshal.
	QueryJSON(ctx context.Context, model, prompt, imgB64 string) (string, error)
}
