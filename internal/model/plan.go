package model

// PlanTier is a static catalog entry. Accounts copy LimitBytes when they change plan.
type PlanTier struct {
	TierID            string `json:"tier_id" mapstructure:"id"`
	DisplayName       string `json:"display_name" mapstructure:"display_name"`
	LimitBytes        int64  `json:"limit_bytes" mapstructure:"limit_bytes"`
	MonthlyPriceCents int64  `json:"monthly_price_cents" mapstructure:"monthly_price_cents"`
}

// PlanTierResponse represents a plan tier in API responses.
type PlanTierResponse struct {
	TierID            string `json:"tier_id"`
	DisplayName       string `json:"display_name"`
	LimitBytes        int64  `json:"limit_bytes"`
	LimitFormatted    string `json:"limit_formatted"`
	MonthlyPriceCents int64  `json:"monthly_price_cents"`
}

// ToResponse converts PlanTier to PlanTierResponse.
func (p *PlanTier) ToResponse() *PlanTierResponse {
	return &PlanTierResponse{
		TierID:            p.TierID,
		DisplayName:       p.DisplayName,
		LimitBytes:        p.LimitBytes,
		LimitFormatted:    FormatBytes(p.LimitBytes),
		MonthlyPriceCents: p.MonthlyPriceCents,
	}
}
