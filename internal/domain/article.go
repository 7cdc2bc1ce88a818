package domain

import "time"

// Article is a single press-clipping entry recovered from a digest block.
type Article struct {
	Title       string
	URL         string
	SourceURL   string // digest link as harvested, before URL resolution
	PublishedAt time.Time
	Source      string
	Faculty     string
	Input       string
	Candidates  []string

	Resolution     ResolutionResult
	Classification Classification
}

// DateLayout is the date-only wire format used by the directory and the store.
const DateLayout = "2006-01-02"

// Classification carries the attributes an external classifier assigns to an article.
type Classification struct {
	Keywords       []string
	Degree         string
	ResearcherRole string
	MediaType      string
	TypeRole       string
	GoodFit        string
	Medium         string
}

// ProcessingStatus enumerates terminal pipeline outcomes.
type ProcessingStatus string

const (
	StatusAccepted ProcessingStatus = "accepted"
	StatusDropped  ProcessingStatus = "dropped"
)

// DropReason explains why an article did not reach the output.
type DropReason string

const (
	ReasonNone            DropReason = ""
	ReasonNoDate          DropReason = "no_date"
	ReasonFilteredSource  DropReason = "filtered_source"
	ReasonFilteredTitle   DropReason = "filtered_title"
	ReasonDuplicateLedger DropReason = "duplicate_ledger"
	ReasonNoCandidates    DropReason = "no_candidates"
	ReasonUnresolved      DropReason = "unresolved"
	ReasonDuplicateStore  DropReason = "duplicate_store"
	ReasonDuplicateBatch  DropReason = "duplicate_batch"
)

// ProcessedArticle is the audit snapshot of one article after a run.
type ProcessedArticle struct {
	Article   Article
	Status    ProcessingStatus
	Reason    DropReason
	CreatedAt time.Time
}
