package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

// Id prefixes per resource.
const (
	prefixTenant   = "tnt_"
	prefixUser     = "u_"
	prefixCompany  = "co_"
	prefixContact  = "c_"
	prefixPipeline = "pl_"
	prefixStage    = "st_"
	prefixDeal     = "d_"
)

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// requireText trims v and rejects it when blank.
func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", domain.RequiredField(field)
	}
	return v, nil
}

// optionalText trims v; blank becomes nil.
func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// patchRequired applies a PATCH on a required text field.
func patchRequired(field string, o domain.Optional[string], current string) (string, error) {
	if !o.Set {
		return current, nil
	}
	if o.Null {
		return "", domain.RequiredField(field)
	}
	return requireText(field, o.Value)
}

// patchOptional applies a PATCH on a nullable text field.
func patchOptional(o domain.Optional[string], current *string) *string {
	if !o.Set {
		return current
	}
	return optionalText(o.Ptr())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return domain.DefaultCurrency
	}
	return c
}

// clampPage applies the default limit when none is given and caps it at max.
func clampPage(p domain.Page, def, max int) domain.Page {
	switch {
	case p.Limit <= 0:
		p.Limit = def
	case p.Limit > max:
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
