// Package profile resolves the active owner and subject. The real app
// gets these from its authentication layer; here they come from
// configuration.
package profile

import (
	"context"
	"strings"

	"github.com/spf13/viper"

	"github.com/ldeneuve/felicare/internal/domain"
	"github.com/ldeneuve/felicare/internal/ports"
)

const (
	ownerKey   = "profile.owner"
	subjectKey = "profile.subject"
)

type ConfigProfile struct {
	owner   domain.OwnerID
	subject domain.SubjectID
}

var _ ports.ActiveProfile = (*ConfigProfile)(nil)

func NewConfigProfile(cfg *viper.Viper) *ConfigProfile {
	if cfg == nil {
		cfg = viper.New()
	}

	return &ConfigProfile{
		owner:   domain.OwnerID(strings.TrimSpace(cfg.GetString(ownerKey))),
		subject: domain.SubjectID(strings.TrimSpace(cfg.GetString(subjectKey))),
	}
}

func NewStaticProfile(owner domain.OwnerID, subject domain.SubjectID) *ConfigProfile {
	return &ConfigProfile{owner: owner, subject: subject}
}

func (p *ConfigProfile) Current(context.Context) (domain.OwnerID, domain.SubjectID, error) {
	if !p.owner.Valid() || !p.subject.Valid() {
		return "", "", domain.ErrNoActiveSubject
	}
	return p.owner, p.subject, nil
}
