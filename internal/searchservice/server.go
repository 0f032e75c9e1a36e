package searchservice

import (
	"context"
	"log/slog"
	"net"

	"GoSearch/internal/transport"
)

// Server wraps a transport.Server[routedRequest, routedResponse] and
// dispatches each accepted request to the matching Backend method by its
// Kind tag.
type Server struct {
	inner *transport.Server[routedRequest, routedResponse]
}

// NewServer builds a Server answering RPCs against backend.
func NewServer(backend Backend, opts transport.ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler := func(ctx context.Context, req routedRequest) (routedResponse, bool) {
		switch req.Kind {
		case kindSearch:
			var payload SearchRequest
			if err := decodePayload(req.Payload, &payload); err != nil {
				logger.Warn("searchservice: malformed search payload", "error", err)
				return routedResponse{}, false
			}
			reply, ok := backend.Search(ctx, payload)
			return encodeReply(req.Kind, reply, ok, logger)

		case kindRetrieveWebsites:
			var payload RetrieveWebsitesRequest
			if err := decodePayload(req.Payload, &payload); err != nil {
				logger.Warn("searchservice: malformed retrieve-websites payload", "error", err)
				return routedResponse{}, false
			}
			reply, ok := backend.RetrieveWebsites(ctx, payload)
			return encodeReply(req.Kind, reply, ok, logger)

		case kindGetWebpage:
			var payload GetWebpageRequest
			if err := decodePayload(req.Payload, &payload); err != nil {
				logger.Warn("searchservice: malformed get-webpage payload", "error", err)
				return routedResponse{}, false
			}
			reply, ok := backend.GetWebpage(ctx, payload)
			return encodeReply(req.Kind, reply, ok, logger)

		default:
			logger.Warn("searchservice: unknown request kind", "kind", req.Kind)
			return routedResponse{}, false
		}
	}

	return &Server{inner: transport.NewServer(handler, opts)}
}

// encodeReply always produces a transport-level Content response: the
// business-level "no answer" case is expressed by routedResponse.Ok, not
// by falling back to the transport layer's own empty tag. That tag is
// reserved for requests this server could not even route (malformed
// payload, unknown kind).
func encodeReply(kind requestKind, reply any, ok bool, logger *slog.Logger) (routedResponse, bool) {
	if !ok {
		return routedResponse{Kind: kind, Ok: false}, true
	}
	payload, err := encodePayload(reply)
	if err != nil {
		logger.Warn("searchservice: failed to encode reply", "kind", kind, "error", err)
		return routedResponse{Kind: kind, Ok: false}, true
	}
	return routedResponse{Kind: kind, Ok: true, Payload: payload}, true
}

// ListenAndServe binds addr and serves the multiplexed RPC listener until
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	return s.inner.ListenAndServe(ctx, addr)
}

// Serve runs the multiplexed RPC listener against an already-bound
// listener, useful for tests that need to learn the bound ephemeral port
// before serving.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	return s.inner.Serve(ctx, ln)
}
