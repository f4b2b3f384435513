package domain

// Sentiment classifies the tone of a trending topic.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Trend is a single ticker entry.
type Trend struct {
	Tag       string    `json:"tag"`
	Volume    string    `json:"volume"`
	Sentiment Sentiment `json:"sentiment"`
	Sources   []string  `json:"sources"`
}
