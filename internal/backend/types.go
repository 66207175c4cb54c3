package backend

import (
	"encoding/json"
	"strconv"
	"time"
)

// Credentials is the login form.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the signup form.
type Registration struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// TokenPair is an access/refresh token pair.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// registerResponse uses different field names than the token endpoint.
type registerResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ID accepts either a JSON number or string.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// String returns the id text.
func (id ID) String() string { return string(id) }

// BusinessAccountInput is the business setup form.
type BusinessAccountInput struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	AccessToken      string `json:"access_token"`
	AutoReplyEnabled bool   `json:"auto_reply_enabled"`
}

// BusinessAccount is a linked business profile.
type BusinessAccount struct {
	ID                ID        `json:"id"`
	BusinessAccountID string    `json:"business_account_id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Logo              string    `json:"logo"`
	AutoReplyEnabled  bool      `json:"auto_reply_enabled"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Insights is the account insight summary.
type Insights struct {
	AccountMetrics map[string]json.RawMessage `json:"account_metrics"`
	Demographics   json.RawMessage            `json:"demographics,omitempty"`
}

type insightsResponse struct {
	Insights Insights `json:"insights"`
}

type metricValue struct {
	Value   json.RawMessage `json:"value"`
	EndTime string          `json:"end_time,omitempty"`
}

// MetricTotal returns the total for an account metric. A metric is either a
// bare number, {"value": n}, or a list of {"value": n} points that are summed.
func (in Insights) MetricTotal(name string) (float64, bool) {
	raw, ok := in.AccountMetrics[name]
	if !ok {
		return 0, false
	}
	return sumMetric(raw)
}

// MetricSeries returns the per-point values of a list metric.
func (in Insights) MetricSeries(name string) []float64 {
	raw, ok := in.AccountMetrics[name]
	if !ok {
		return nil
	}
	var points []metricValue
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil
	}
	out := make([]float64, 0, len(points))
	for _, p := range points {
		if v, ok := number(p.Value); ok {
			out = append(out, v)
		}
	}
	return out
}

func sumMetric(raw json.RawMessage) (float64, bool) {
	if v, ok := number(raw); ok {
		return v, true
	}
	var single metricValue
	if err := json.Unmarshal(raw, &single); err == nil && single.Value != nil {
		return number(single.Value)
	}
	var points []metricValue
	if err := json.Unmarshal(raw, &points); err != nil || len(points) == 0 {
		return 0, false
	}
	var total float64
	var found bool
	for _, p := range points {
		if v, ok := number(p.Value); ok {
			total += v
			found = true
		}
	}
	return total, found
}

func number(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// Post is one media item on the linked account.
type Post struct {
	ID           string    `json:"id"`
	Caption      string    `json:"caption"`
	MediaType    string    `json:"media_type"`
	MediaURL     string    `json:"media_url"`
	Permalink    string    `json:"permalink"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Timestamp    Timestamp `json:"timestamp"`
}

type postsResponse struct {
	Posts []Post `json:"posts"`
}

// Timestamp parses the backend's RFC 3339 and Graph API "+0000" forms.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

// Profile is the linked account profile.
type Profile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	Biography         string `json:"biography"`
	ProfilePictureURL string `json:"profile_picture_url"`
	FollowersCount    int64  `json:"followers_count"`
	FollowsCount      int64  `json:"follows_count"`
	MediaCount        int64  `json:"media_count"`
}

type profileResponse struct {
	Profile Profile `json:"profile"`
}

// Comment is a comment on a post.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Username  string    `json:"username"`
	Timestamp Timestamp `json:"timestamp"`
}

type commentsResponse struct {
	Comments []Comment `json:"comments"`
}

// GeneratedPost is an AI-generated image with caption.
type GeneratedPost struct {
	ExpandedPrompt string `json:"expanded_prompt"`
	Caption        string `json:"caption"`
	ImageURL       string `json:"image_url"`
}

// CaptionRequest asks for a caption only.
type CaptionRequest struct {
	ShortPrompt    string `json:"short_prompt"`
	ExpandedPrompt string `json:"expanded_prompt"`
}

type captionResponse struct {
	Caption string `json:"caption"`
}

// SentimentScores are the per-label probabilities.
type SentimentScores struct {
	Positive float64 `json:"Positive"`
	Neutral  float64 `json:"Neutral"`
	Negative float64 `json:"Negative"`
}

// Sentiment is a scored text.
type Sentiment struct {
	Text        string          `json:"text"`
	CleanedText string          `json:"cleaned_text"`
	Label       string          `json:"sentiment"`
	Confidence  float64         `json:"confidence"`
	Scores      SentimentScores `json:"sentiment_scores"`
}

type sentimentResponse struct {
	SentimentScore Sentiment `json:"sentiment_score"`
}

// PublishInput publishes a caption with a hosted image.
type PublishInput struct {
	Caption  string
	ImageURL string
}

// PublishResult describes a published post.
type PublishResult struct {
	Message  string `json:"message"`
	PostLink string `json:"post_link"`
	MediaID  string `json:"media_id"`
}
