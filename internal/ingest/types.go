package ingest

import "time"

// Dataset is the YAML document accepted by `affinity ingest`.
type Dataset struct {
	Entities []EntityRecord `yaml:"entities"`
	Users    []UserRecord   `yaml:"users"`
}

type EntityRecord struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Brand    string `yaml:"brand"`
	ImageURL string `yaml:"image_url"`
}

type UserRecord struct {
	ID       string          `yaml:"id"`
	Stuff    []StuffRecord   `yaml:"stuff"`
	Routines []RoutineRecord `yaml:"routines"`
	Journeys []JourneyRecord `yaml:"journeys"`
	Reviews  []ReviewRecord  `yaml:"reviews"`
}

type StuffRecord struct {
	Entity    string `yaml:"entity"`
	Status    string `yaml:"status"`
	Sentiment *int   `yaml:"sentiment"`
	Category  string `yaml:"category"`
}

type RoutineRecord struct {
	ID        string `yaml:"id"`
	Category  string `yaml:"category"`
	Frequency string `yaml:"frequency"`
	Steps     []struct {
		EntityID string `yaml:"entity_id"`
		Name     string `yaml:"name"`
		Notes    string `yaml:"notes"`
	} `yaml:"steps"`
}

type JourneyRecord struct {
	ID            string    `yaml:"id"`
	From          string    `yaml:"from"`
	To            string    `yaml:"to"`
	Type          string    `yaml:"type"`
	FromSentiment *int      `yaml:"from_sentiment"`
	ToSentiment   *int      `yaml:"to_sentiment"`
	Confidence    *float64  `yaml:"confidence"`
	Evidence      string    `yaml:"evidence"`
	Category      string    `yaml:"category"`
	CreatedAt     time.Time `yaml:"created_at"`
}

type ReviewRecord struct {
	Entity    string    `yaml:"entity"`
	Rating    float64   `yaml:"rating"`
	Category  string    `yaml:"category"`
	CreatedAt time.Time `yaml:"created_at"`
}
