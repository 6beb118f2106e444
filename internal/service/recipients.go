package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"medreminder/internal/model"
	"medreminder/internal/repository"
)

// ErrAllSourcesFailed is returned when no endpoint source could be read.
var ErrAllSourcesFailed = errors.New("all endpoint sources failed")

// RecipientResolver maps a user to the endpoints registered across every
// known storage shape.
type RecipientResolver struct {
	sources []repository.EndpointSource
	log     *zap.Logger
}

func NewRecipientResolver(log *zap.Logger, sources ...repository.EndpointSource) *RecipientResolver {
	return &RecipientResolver{
		sources: sources,
		log:     log.Named("recipients"),
	}
}

// Resolve reads every source and unions the tokens. A source that fails is
// logged and skipped; the call only errors when every source failed.
func (r *RecipientResolver) Resolve(ctx context.Context, userID string) (model.UserEndpointSet, error) {
	set := model.UserEndpointSet{OwnerUserID: userID}
	if len(r.sources) == 0 {
		return set, nil
	}

	lists := make([][]string, 0, len(r.sources))
	var errs []error
	for _, src := range r.sources {
		tokens, err := src.EndpointsForUser(ctx, userID)
		if err != nil {
			r.log.Warn("endpoint source failed",
				zap.String("source", src.Name()),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		lists = append(lists, tokens)
	}

	if len(errs) == len(r.sources) {
		return set, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
	}

	set.Endpoints = MergeEndpoints(lists...)
	return set, nil
}

// MergeEndpoints unions token lists by exact equality, dropping empty tokens
// and keeping first-seen order.
func MergeEndpoints(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, tok := range list {
			if tok == "" {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}
