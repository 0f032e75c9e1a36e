package searchservice

import (
	"context"
	"fmt"

	"GoSearch/internal/fanout"
	"GoSearch/internal/transport"
)

// RemoteClient reaches one searcher's multiplexed listener and exposes
// the three RPCs as ordinary typed methods, hiding the routedRequest/
// routedResponse envelope from callers.
type RemoteClient struct {
	wrapped *transport.Wrapper[routedRequest, routedResponse]
}

// NewRemoteClient binds a RemoteClient to addr.
func NewRemoteClient(addr string, opts transport.CallOptions) *RemoteClient {
	return &RemoteClient{wrapped: transport.NewWrapper[routedRequest, routedResponse](addr, opts)}
}

func (c *RemoteClient) call(ctx context.Context, kind requestKind, req any, reply any) error {
	payload, err := encodePayload(req)
	if err != nil {
		return err
	}

	resp, err := c.wrapped.Send(ctx, routedRequest{Kind: kind, Payload: payload})
	if err != nil {
		return err
	}
	if resp.Kind != kind {
		return fmt.Errorf("searchservice: reply kind mismatch: got %d, want %d", resp.Kind, kind)
	}
	if !resp.Ok {
		return transport.ErrEmptyResponse
	}
	return decodePayload(resp.Payload, reply)
}

// Search issues a SearchRequest.
func (c *RemoteClient) Search(ctx context.Context, req SearchRequest) (SearchReply, error) {
	var reply SearchReply
	err := c.call(ctx, kindSearch, req, &reply)
	return reply, err
}

// RetrieveWebsites issues a RetrieveWebsitesRequest.
func (c *RemoteClient) RetrieveWebsites(ctx context.Context, req RetrieveWebsitesRequest) (RetrieveWebsitesReply, error) {
	var reply RetrieveWebsitesReply
	err := c.call(ctx, kindRetrieveWebsites, req, &reply)
	return reply, err
}

// GetWebpage issues a GetWebpageRequest.
func (c *RemoteClient) GetWebpage(ctx context.Context, req GetWebpageRequest) (GetWebpageReply, error) {
	var reply GetWebpageReply
	err := c.call(ctx, kindGetWebpage, req, &reply)
	return reply, err
}

// searchCaller adapts RemoteClient.Search to fanout.Caller so the outer
// fan-out layer can dispatch without knowing about the multiplexed
// envelope underneath.
type searchCaller struct{ client *RemoteClient }

func (a searchCaller) Send(ctx context.Context, req SearchRequest) (SearchReply, error) {
	return a.client.Search(ctx, req)
}

// NewSearchCaller builds the Search fanout.Caller adapter for addr.
func NewSearchCaller(addr string, opts transport.CallOptions) fanout.Caller[SearchRequest, SearchReply] {
	return searchCaller{client: NewRemoteClient(addr, opts)}
}

type retrieveWebsitesCaller struct{ client *RemoteClient }

func (a retrieveWebsitesCaller) Send(ctx context.Context, req RetrieveWebsitesRequest) (RetrieveWebsitesReply, error) {
	return a.client.RetrieveWebsites(ctx, req)
}

// NewRetrieveWebsitesCaller builds the RetrieveWebsites fanout.Caller
// adapter for addr.
func NewRetrieveWebsitesCaller(addr string, opts transport.CallOptions) fanout.Caller[RetrieveWebsitesRequest, RetrieveWebsitesReply] {
	return retrieveWebsitesCaller{client: NewRemoteClient(addr, opts)}
}

type getWebpageCaller struct{ client *RemoteClient }

func (a getWebpageCaller) Send(ctx context.Context, req GetWebpageRequest) (GetWebpageReply, error) {
	return a.client.GetWebpage(ctx, req)
}

// NewGetWebpageCaller builds the GetWebpage fanout.Caller adapter for
// addr.
func NewGetWebpageCaller(addr string, opts transport.CallOptions) fanout.Caller[GetWebpageRequest, GetWebpageReply] {
	return getWebpageCaller{client: NewRemoteClient(addr, opts)}
}
