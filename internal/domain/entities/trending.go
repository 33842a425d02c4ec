package entities

import "time"

// TrendingTopic groups related claims under a decaying engagement score.
// ClaimIDs are non-owning back-references.
type TrendingTopic struct {
	ID                string    `json:"id"`
	Label             string    `json:"label"`
	NormalizedLabel   string    `json:"normalized_label"`
	Category          string    `json:"category"`
	EngagementScore   float64   `json:"engagement_score"`
	BaseEngagement    float64   `json:"base_engagement"`
	ClaimIDs          []string  `json:"claim_ids"`
	IsHighRisk        bool      `json:"is_high_risk"`
	AdvisoryRequested bool      `json:"advisory_requested"`
	DetectedAt        time.Time `json:"detected_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
}

// AddClaims merges ids into the topic, keeping order and skipping duplicates.
// It returns how many ids were new.
func (t *TrendingTopic) AddClaims(ids ...string) int {
	seen := make(map[string]struct{}, len(t.ClaimIDs))
	for _, id := range t.ClaimIDs {
		seen[id] = struct{}{}
	}
	added := 0
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		t.ClaimIDs = append(t.ClaimIDs, id)
		added++
	}
	return added
}

// Advisory is auto-generated explainer content for a high-risk topic.
type Advisory struct {
	ID        string    `json:"id"`
	TopicID   string    `json:"topic_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}
