package msr

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-msr/internal/hydrate"
)

type instancePayload struct {
	ServiceInstanceInput
	Keywords []string `json:"keywords"`
}

var instanceDecoder = hydrate.NewDecoder[instancePayload](
	hydrate.WithPreHook[instancePayload](normalizeKeywordsHook),
	hydrate.WithPostHook[instancePayload](trimPayloadHook),
)

// DecodedInstance pairs a decoded instance input with its keyword sequence.
type DecodedInstance struct {
	Input    ServiceInstanceInput
	Keywords []string
}

// DecodeServiceInstance converts a transport payload into the arguments of
// RegisterServiceInstance. Keywords may arrive as a list or as one string of
// space separated words. Malformed payloads fail with ErrInvalidArgument.
func DecodeServiceInstance(payload map[string]any) (ServiceInstanceInput, []string, error) {
	decoded, err := instanceDecoder.Decode(hydrate.Context{Source: "service_instance"}, payload)
	if err != nil {
		return ServiceInstanceInput{}, nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	out := decoded.toInstance()
	return out.Input, out.Keywords, nil
}

// DecodeServiceInstances decodes a batch of payloads in order. The first
// malformed payload fails the batch with ErrInvalidArgument and its index in
// the message.
func DecodeServiceInstances(payloads []map[string]any) ([]DecodedInstance, error) {
	decoded, err := instanceDecoder.DecodeEach(hydrate.Context{Source: "service_instances"}, payloads)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	out := make([]DecodedInstance, 0, len(decoded))
	for _, payload := range decoded {
		out = append(out, payload.toInstance())
	}
	return out, nil
}

func (p instancePayload) toInstance() DecodedInstance {
	keywords := p.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return DecodedInstance{Input: p.ServiceInstanceInput, Keywords: keywords}
}

func normalizeKeywordsHook(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	switch value := payload["keywords"].(type) {
	case nil, []any:
		return payload, nil
	case string:
		fields := strings.Fields(value)
		keywords := make([]any, 0, len(fields))
		for _, field := range fields {
			keywords = append(keywords, field)
		}
		payload["keywords"] = keywords
		return payload, nil
	default:
		return nil, fmt.Errorf("keywords must be a list or a string, got %T", value)
	}
}

func trimPayloadHook(_ hydrate.Context, payload *instancePayload) error {
	payload.ServiceInstanceInput = trimInstanceInput(payload.ServiceInstanceInput)
	for i, keyword := range payload.Keywords {
		payload.Keywords[i] = strings.TrimSpace(keyword)
	}
	return nil
}
