package app

import (
	"context"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"karoo_lodge/internal/domain"
)

// SubmissionService appends public form payloads through the restricted
// gateway.
type SubmissionService struct {
	gw     domain.Gateway
	policy *bluemonday.Policy
	newID  func() string
}

func NewSubmissionService(gw domain.Gateway) *SubmissionService {
	return &SubmissionService{gw: gw, policy: bluemonday.StrictPolicy(), newID: newItemID}
}

// Submit validates the payload, strips markup from every text field and
// stores it. It returns the new row id.
func (s *SubmissionService) Submit(ctx context.Context, p domain.Submittable) (string, error) {
	if p == nil {
		return "", domain.Invalidf("payload is required")
	}
	if err := validate(p); err != nil {
		return "", err
	}
	row, err := toRow(p)
	if err != nil {
		return "", err
	}
	for k, v := range row {
		if str, ok := v.(string); ok {
			row[k] = strings.TrimSpace(s.policy.Sanitize(str))
		}
	}
	k := p.SubmissionKind()
	id := s.newID()
	row["id"] = id
	if err := s.gw.Insert(ctx, k.Table(), row); err != nil {
		return "", err
	}
	log.Ctx(ctx).Info().Str("kind", string(k)).Str("id", id).Msg("submission stored")
	return id, nil
}
