package datastore

import "time"

type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Remote      bool      `json:"remote"`
	Verified    bool      `json:"verified"`
	Flagged     bool      `json:"flagged"`
	PostedAt    time.Time `json:"posted_at"`
}

type Gig struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Remote      bool      `json:"remote"`
	Verified    bool      `json:"verified"`
	Flagged     bool      `json:"flagged"`
	BudgetMin   int       `json:"budget_min"`
	BudgetMax   int       `json:"budget_max"`
	PostedAt    time.Time `json:"posted_at"`
}

type Freelancer struct {
	ID            string   `json:"id"`
	FullName      string   `json:"full_name"`
	Title         string   `json:"title"`
	Skills        []string `json:"skills"`
	Province      string   `json:"province"`
	Remote        bool     `json:"remote"`
	Verified      bool     `json:"verified"`
	Flagged       bool     `json:"flagged"`
	Rating        float64  `json:"rating"`
	JobsCompleted int      `json:"jobs_completed"`
	Role          string   `json:"role"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Participants   []string  `json:"participants"`
	Content        string    `json:"content"`
	Flagged        bool      `json:"flagged"`
	CreatedAt      time.Time `json:"created_at"`
}

type FAQ struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Flagged  bool   `json:"flagged"`
}
