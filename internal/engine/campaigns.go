package engine

import (
	"fmt"
	"strings"
	"time"

	"campaign-scheduler/internal/config"
	"campaign-scheduler/internal/customer"
)

// FromConfig builds the campaign list of a pass. "HH:MM" send times are
// resolved on passDate in loc; anything else must be RFC 3339.
func FromConfig(cfgs []config.CampaignConfig, passDate time.Time, loc *time.Location) ([]Campaign, error) {
	if loc == nil {
		loc = time.Local
	}
	out := make([]Campaign, 0, len(cfgs))
	for i, cc := range cfgs {
		if strings.TrimSpace(cc.Template) == "" {
			return nil, fmt.Errorf("campaign %d: template is required", i)
		}
		pred, err := customer.Parse(filterSpec(cc.Filter))
		if err != nil {
			return nil, fmt.Errorf("campaign %d (%s): %w", i, cc.Template, err)
		}
		at, err := resolveSendTime(cc.SendAt, passDate, loc)
		if err != nil {
			return nil, fmt.Errorf("campaign %d (%s): %w", i, cc.Template, err)
		}
		out = append(out, Campaign{
			TemplateName: cc.Template,
			Filter:       pred,
			SendTime:     at,
			Priority:     cc.Priority,
		})
	}
	return out, nil
}

func filterSpec(f config.FilterConfig) customer.Spec {
	s := customer.Spec{Kind: f.Kind, Value: f.Value}
	for _, c := range f.Clauses {
		s.Clauses = append(s.Clauses, filterSpec(c))
	}
	return s
}

func resolveSendTime(v string, passDate time.Time, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("send_at is required")
	}
	if hm, err := time.Parse("15:04", v); err == nil {
		d := passDate.In(loc)
		return time.Date(d.Year(), d.Month(), d.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), nil
	}
	at, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("send_at %q: want HH:MM or RFC 3339", v)
	}
	return at, nil
}
