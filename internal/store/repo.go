package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match (LLM events only)
}

// Pulse types.
const (
	PulseUnderstand = "UNDERSTAND"
	PulseConfused   = "CONFUSED"
)

// Live session states.
const (
	SessionWaiting = "WAITING"
	SessionLive    = "LIVE"
	SessionEnded   = "ENDED"
)

// QuizResponseRecord is one checkpoint-quiz answer. Timestamp is the
// response time.
type QuizResponseRecord struct {
	Sequence        int64     `sql:"sequence"`
	Timestamp       time.Time `sql:"timestamp"`
	SessionID       string    `sql:"session_id"`
	StudentID       string    `sql:"student_id"`
	QuizID          string    `sql:"quiz_id"`
	QuestionText    string    `sql:"question_text"`
	CorrectAnswer   string    `sql:"correct_answer"`
	SubmittedAnswer string    `sql:"submitted_answer"`
	IsCorrect       bool      `sql:"is_correct"`
}

// PulseRecord is one understanding signal.
type PulseRecord struct {
	Sequence  int64     `sql:"sequence"`
	Timestamp time.Time `sql:"timestamp"`
	SessionID string    `sql:"session_id"`
	StudentID string    `sql:"student_id"`
	PulseType string    `sql:"pulse_type"`
}

// TranscriptRecord is one chunk of the live transcript.
type TranscriptRecord struct {
	Sequence  int64     `sql:"sequence"`
	Timestamp time.Time `sql:"timestamp"`
	SessionID string    `sql:"session_id"`
	Text      string    `sql:"text"`
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string `sql:"provider"`
	Model        string `sql:"model"`
	Purpose      string `sql:"purpose"`
	InputTokens  int    `sql:"input_tokens"`
	OutputTokens int    `sql:"output_tokens"`
	LatencyMs    int64  `sql:"latency_ms"`
	Success      bool   `sql:"success"`
	ErrorMessage string `sql:"error_message"`
	RequestBody  string `sql:"request_body"`
	ResponseBody string `sql:"response_body"`
}

// LLMRequestRecord is a stored LLM request event.
type LLMRequestRecord struct {
	Sequence  int64     `sql:"sequence"`
	Timestamp time.Time `sql:"timestamp"`
	LLMRequestEventData
}

// EventRepo provides append and query access to the event log. Every append
// takes a number from the global sequence.
type EventRepo interface {
	AppendQuizResponse(ctx context.Context, rec *QuizResponseRecord) error
	AppendPulse(ctx context.Context, rec *PulseRecord) error
	AppendTranscript(ctx context.Context, rec *TranscriptRecord) error

	// RecentQuizResponses returns the student's most recent responses in the
	// session, newest first (timestamp desc, then sequence desc).
	RecentQuizResponses(ctx context.Context, sessionID, studentID string, limit int) ([]QuizResponseRecord, error)

	// PulsesSince returns the student's pulses of the given type with
	// timestamp >= since, oldest first.
	PulsesSince(ctx context.Context, sessionID, studentID, pulseType string, since time.Time) ([]PulseRecord, error)

	// HasIncorrectSince reports whether the student answered a quiz wrong
	// in the session at or after since.
	HasIncorrectSince(ctx context.Context, sessionID, studentID string, since time.Time) (bool, error)

	// LatestTranscript returns the newest transcript chunk of the session,
	// or nil if there is none.
	LatestTranscript(ctx context.Context, sessionID string) (*TranscriptRecord, error)

	// QuizTally counts the student's correct and total quiz responses over
	// the given sessions.
	QuizTally(ctx context.Context, studentID string, sessionIDs []string) (correct, total int, err error)

	// PulseTally counts the student's pulses by type over the given sessions.
	PulseTally(ctx context.Context, studentID string, sessionIDs []string) (understand, confused int, err error)

	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMRequests returns LLM request events, newest first.
	QueryLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestRecord, error)
}

// OfferingRecord is a course offering.
type OfferingRecord struct {
	ID                 string    `sql:"id"`
	Title              string    `sql:"title"`
	InstructorID       string    `sql:"instructor_id"`
	RequireRouteReview bool      `sql:"require_route_review"`
	CreatedAt          time.Time `sql:"created_at"`
}

// SessionRecord is a live session.
type SessionRecord struct {
	ID               string     `sql:"id"`
	CourseOfferingID string     `sql:"course_offering_id"`
	Title            string     `sql:"title"`
	Status           string     `sql:"status"`
	StartedAt        *time.Time `sql:"started_at"`
	EndedAt          *time.Time `sql:"ended_at"`
	CreatedAt        time.Time  `sql:"created_at"`
}

// CourseRepo manages course offerings and their live sessions.
type CourseRepo interface {
	CreateOffering(ctx context.Context, rec *OfferingRecord) error
	GetOffering(ctx context.Context, id string) (*OfferingRecord, error)
	OfferingsByInstructor(ctx context.Context, instructorID string) ([]OfferingRecord, error)

	CreateSession(ctx context.Context, rec *SessionRecord) error
	GetSession(ctx context.Context, id string) (*SessionRecord, error)

	// SetSessionStatus moves a session to status. LIVE stamps started_at and
	// ENDED stamps ended_at.
	SetSessionStatus(ctx context.Context, id, status string, at time.Time) error

	// EndedSessions returns the ENDED sessions of the given offerings.
	EndedSessions(ctx context.Context, offeringIDs ...string) ([]SessionRecord, error)

	// PurgeSession deletes a session together with its events, alerts,
	// routes and formative submissions in one transaction.
	PurgeSession(ctx context.Context, id string) error
}

// SkillRecord is a catalog skill.
type SkillRecord struct {
	ID       string `sql:"id"`
	Name     string `sql:"name"`
	Category string `sql:"category"`
}

// PlacementRecord is a placement-test outcome.
type PlacementRecord struct {
	StudentID        string    `sql:"student_id"`
	CourseOfferingID string    `sql:"course_offering_id"`
	Level            string    `sql:"level"`
	CreatedAt        time.Time `sql:"created_at"`
}

// SkillRepo manages the skill catalog, career goals and placements.
type SkillRepo interface {
	UpsertSkill(ctx context.Context, rec SkillRecord) error
	// Skills returns the named skills keyed by ID. Unknown IDs are skipped.
	Skills(ctx context.Context, ids ...string) (map[string]SkillRecord, error)
	// MatchName returns the first skill whose name contains fragment,
	// ignoring case, or nil.
	MatchName(ctx context.Context, fragment string) (*SkillRecord, error)

	AddGoalSkill(ctx context.Context, goalID, skillID string) error
	SetStudentGoal(ctx context.Context, studentID, goalID string) error
	// GoalSkillIDs returns the required skills of the student's career goal.
	// hasGoal is false when the student has not selected a goal.
	GoalSkillIDs(ctx context.Context, studentID string) (ids []string, hasGoal bool, err error)

	AddPlacement(ctx context.Context, rec PlacementRecord) error
	// LatestPlacement returns the student's newest placement, or nil.
	LatestPlacement(ctx context.Context, studentID string) (*PlacementRecord, error)
}

// SkillBlockRecord is the stored mastery composite of one skill.
type SkillBlockRecord struct {
	ID               string     `sql:"id"`
	StudentID        string     `sql:"student_id"`
	SkillID          string     `sql:"skill_id"`
	CourseOfferingID string     `sql:"course_offering_id"`
	Level            int        `sql:"level"`
	CheckpointScore  float64    `sql:"checkpoint_score"`
	FormativeScore   float64    `sql:"formative_score"`
	UnderstandScore  float64    `sql:"understand_score"`
	TotalScore       float64    `sql:"total_score"`
	IsEarned         bool       `sql:"is_earned"`
	EarnedAt         *time.Time `sql:"earned_at"`
	UpdatedAt        time.Time  `sql:"updated_at"`
}

// Gap map states.
const (
	GapStatusGap      = "GAP"
	GapStatusLearning = "LEARNING"
	GapStatusOwned    = "OWNED"
)

// GapEntryRecord is one row of the student's gap map.
type GapEntryRecord struct {
	StudentID string    `sql:"student_id"`
	SkillID   string    `sql:"skill_id"`
	Status    string    `sql:"status"`
	Progress  int       `sql:"progress"`
	UpdatedAt time.Time `sql:"updated_at"`
}

// MasteryRepo stores skill blocks and the gap map.
type MasteryRepo interface {
	// UpdateSkillBlock loads the block for (student, skill, offering), or a
	// zero record with the key set when absent, passes it to fn with the
	// existing flag, and saves the result. It runs in one transaction.
	UpdateSkillBlock(ctx context.Context, studentID, skillID, offeringID string,
		fn func(b *SkillBlockRecord, exists bool) error) (*SkillBlockRecord, error)
	SkillBlocks(ctx context.Context, studentID string) ([]SkillBlockRecord, error)

	// StudentSkillIDs returns every skill with a gap-map entry or skill
	// block for the student.
	StudentSkillIDs(ctx context.Context, studentID string) ([]string, error)

	// PromoteOwned upserts the gap-map entry to OWNED with progress.
	PromoteOwned(ctx context.Context, studentID, skillID string, progress int, at time.Time) error
	// SetGapEntry upserts a gap-map entry. An OWNED entry is never demoted.
	SetGapEntry(ctx context.Context, rec GapEntryRecord) error
	GapEntries(ctx context.Context, studentID string) ([]GapEntryRecord, error)
}

// Alert trigger types, families and states.
const (
	TriggerQuizWrong     = "QUIZ_WRONG"
	TriggerPulseConfused = "PULSE_CONFUSED"
	TriggerCombined      = "COMBINED"

	FamilyQuiz  = "QUIZ"
	FamilyPulse = "PULSE"

	AlertDetected       = "DETECTED"
	AlertMaterialPushed = "MATERIAL_PUSHED"
	AlertDismissed      = "DISMISSED"
	AlertResolved       = "RESOLVED"
)

// AlertRecord is a stored weak-zone alert. TriggerDetail is JSON.
type AlertRecord struct {
	ID                 string    `sql:"id"`
	SessionID          string    `sql:"session_id"`
	StudentID          string    `sql:"student_id"`
	TriggerType        string    `sql:"trigger_type"`
	TriggerFamily      string    `sql:"trigger_family"`
	TriggerDetail      string    `sql:"trigger_detail"`
	AISuggestedContent string    `sql:"ai_suggested_content"`
	Status             string    `sql:"status"`
	CreatedAt          time.Time `sql:"created_at"`
	UpdatedAt          time.Time `sql:"updated_at"`
}

// AlertRepo stores weak-zone alerts.
type AlertRepo interface {
	// CreateIfClear inserts rec unless an alert of the same family exists
	// for (session, student) with created_at >= since. The check and the
	// insert share one transaction. created is false when the window was
	// not clear.
	CreateIfClear(ctx context.Context, rec *AlertRecord, since time.Time) (created bool, err error)
	Get(ctx context.Context, id string) (*AlertRecord, error)
	SetContent(ctx context.Context, id, content string, at time.Time) error
	SetStatus(ctx context.Context, id, status string, at time.Time) error
	// ForStudentSession returns the student's alerts in the session, oldest
	// first.
	ForStudentSession(ctx context.Context, sessionID, studentID string) ([]AlertRecord, error)
	// WithStatus returns alerts of the given sessions in status, newest
	// first.
	WithStatus(ctx context.Context, status string, sessionIDs ...string) ([]AlertRecord, error)
}

// ReviewItemRecord is a stored spaced-repetition item. ReviewOptions and
// Schedule are JSON.
type ReviewItemRecord struct {
	ID              string    `sql:"id"`
	StudentID       string    `sql:"student_id"`
	ConceptName     string    `sql:"concept_name"`
	SourceSessionID string    `sql:"source_session_id"`
	ReviewQuestion  string    `sql:"review_question"`
	ReviewAnswer    string    `sql:"review_answer"`
	ReviewOptions   string    `sql:"review_options"`
	Schedule        string    `sql:"schedule"`
	CurrentReview   int       `sql:"current_review"`
	CreatedAt       time.Time `sql:"created_at"`
}

// ReviewRepo stores spaced-repetition items.
type ReviewRepo interface {
	// CreateIfAbsent inserts rec unless the student already has an item for
	// the concept. created is false on conflict.
	CreateIfAbsent(ctx context.Context, rec *ReviewItemRecord) (created bool, err error)
	Get(ctx context.Context, id string) (*ReviewItemRecord, error)
	GetByConcept(ctx context.Context, studentID, conceptName string) (*ReviewItemRecord, error)
	ConceptNames(ctx context.Context, studentID string) ([]string, error)
	// Update loads the item, applies fn and saves the schedule and
	// current_review in one transaction.
	Update(ctx context.Context, id string, fn func(*ReviewItemRecord) error) (*ReviewItemRecord, error)
	ForStudent(ctx context.Context, studentID string) ([]ReviewItemRecord, error)
	ForSession(ctx context.Context, studentID, sessionID string) ([]ReviewItemRecord, error)
}

// Review route states.
const (
	RouteSuggested    = "SUGGESTED"
	RouteAutoApproved = "AUTO_APPROVED"
	RouteApproved     = "APPROVED"
	RouteModified     = "MODIFIED"
	RouteRejected     = "REJECTED"
)

// RouteRecord is a stored review route. Items and CompletedItems are JSON.
type RouteRecord struct {
	ID              string     `sql:"id"`
	StudentID       string     `sql:"student_id"`
	SessionID       string     `sql:"session_id"`
	Items           string     `sql:"items"`
	Status          string     `sql:"status"`
	CompletedItems  string     `sql:"completed_items"`
	TotalEstMinutes int        `sql:"total_est_minutes"`
	CreatedAt       time.Time  `sql:"created_at"`
	DecidedAt       *time.Time `sql:"decided_at"`
}

// RouteRepo stores review routes.
type RouteRepo interface {
	// CreateIfAbsent inserts rec unless a route exists for (student,
	// session). created is false on conflict.
	CreateIfAbsent(ctx context.Context, rec *RouteRecord) (created bool, err error)
	Get(ctx context.Context, id string) (*RouteRecord, error)
	GetFor(ctx context.Context, studentID, sessionID string) (*RouteRecord, error)
	// Update loads the route, applies fn and saves it in one transaction.
	Update(ctx context.Context, id string, fn func(*RouteRecord) error) (*RouteRecord, error)
	// ForStudent returns the student's routes in any of statuses, newest
	// first.
	ForStudent(ctx context.Context, studentID string, statuses ...string) ([]RouteRecord, error)
	// WithStatus returns routes of the given sessions in status, newest first.
	WithStatus(ctx context.Context, status string, sessionIDs ...string) ([]RouteRecord, error)
}

// FormativeSubmissionRecord is a graded post-session assessment.
type FormativeSubmissionRecord struct {
	ID          string    `sql:"id"`
	SessionID   string    `sql:"session_id"`
	StudentID   string    `sql:"student_id"`
	Score       int       `sql:"score"`
	Total       int       `sql:"total"`
	Percentage  float64   `sql:"percentage"`
	SubmittedAt time.Time `sql:"submitted_at"`
}

// FormativeAnswerRecord is one graded question. Options is JSON.
type FormativeAnswerRecord struct {
	SubmissionID  string `sql:"submission_id"`
	Position      int    `sql:"position"`
	ConceptTag    string `sql:"concept_tag"`
	QuestionText  string `sql:"question_text"`
	CorrectAnswer string `sql:"correct_answer"`
	Options       string `sql:"options"`
	IsCorrect     bool   `sql:"is_correct"`
}

// FormativeRepo stores formative submissions.
type FormativeRepo interface {
	// Create stores a submission and its answers in one transaction.
	// created is false when the student already submitted for the session.
	Create(ctx context.Context, sub *FormativeSubmissionRecord, answers []FormativeAnswerRecord) (created bool, err error)
	Get(ctx context.Context, sessionID, studentID string) (*FormativeSubmissionRecord, error)
	Answers(ctx context.Context, submissionID string) ([]FormativeAnswerRecord, error)
	// Percentages returns the student's submission percentages over the
	// given sessions.
	Percentages(ctx context.Context, studentID string, sessionIDs []string) ([]float64, error)
}
