package components

import (
	"context"
	"encoding/json"
	"fmt"

	"caprun/internal/capability"
	"caprun/internal/provider"
)

// NewRESTAPIFactory builds the factory for the rest_api environment. GET
// responses are cached under the content tier; writes are never cached.
func NewRESTAPIFactory(client provider.RESTClient) capability.Factory {
	return func(name string, config map[string]any) (capability.Component, error) {
		if client == nil {
			return nil, fmt.Errorf("%w: rest_api requires a REST client", capability.ErrValidation)
		}
		return &restAPI{name: name, client: client}, nil
	}
}

type restAPI struct {
	name   string
	client provider.RESTClient
}

func (r *restAPI) Initialize(ctx context.Context) error { return nil }

func (r *restAPI) Actions() []capability.ActionDescriptor {
	return []capability.ActionDescriptor{
		{
			Name:        "get",
			Description: "GET a path and return the decoded JSON body",
			Parameters: capability.ParameterSchema{
				"path": {Type: "string", Required: true},
			},
			Order:         []string{"path"},
			Component:     r.name,
			CacheCategory: "content",
		},
		{
			Name:        "post",
			Description: "POST a JSON body to a path",
			Parameters: capability.ParameterSchema{
				"path": {Type: "string", Required: true},
				"body": {Type: "object"},
			},
			Order:     []string{"path", "body"},
			Component: r.name,
		},
	}
}

func (r *restAPI) ExecuteAction(ctx context.Context, action string, kwargs map[string]any) (any, error) {
	path, _ := kwargs["path"].(string)

	var method string
	var body any
	switch action {
	case "get":
		method = "GET"
	case "post":
		method = "POST"
		body = kwargs["body"]
	default:
		return nil, fmt.Errorf("%w: action %q", capability.ErrNotFound, action)
	}

	raw, _, err := r.client.Request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decoding %s %s response: %v", capability.ErrInternal, method, path, err)
	}
	return decoded, nil
}

func (r *restAPI) Teardown(ctx context.Context) error { return nil }
