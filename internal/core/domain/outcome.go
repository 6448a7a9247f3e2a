package domain

// Stage names a step of the command pipeline.
type Stage string

const (
	StageParse     Stage = "parse"
	StagePortfolio Stage = "portfolio"
	StageRisk      Stage = "risk"
	StageSecurity  Stage = "security"
	StageExecute   Stage = "execute"
	StageAudit     Stage = "audit"
)

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

const (
	RunRejected            RunStatus = "rejected"
	RunFailed              RunStatus = "failed"
	RunPendingConfirmation RunStatus = "pending_confirmation"
	RunAudited             RunStatus = "audited"
)

// Outcome is the terminal result of one pipeline run. It is one of
// *Rejected, *Failed, *PendingConfirmation or *Audited.
type Outcome interface {
	Status() RunStatus
	outcome()
}

// Rejected is a business-rule decision by the risk or security stage.
type Rejected struct {
	Stage   Stage
	Reasons []string
	Message string
	Intent  Intent
}

// Failed is an infrastructure or unexpected error at any stage, or an
// execution that was skipped or could not complete.
type Failed struct {
	Stage   Stage
	Error   string
	Message string
	Intent  *Intent // nil when parsing never produced one
}

// PendingConfirmation means a transfer challenge awaits the user's PIN.
type PendingConfirmation struct {
	Challenge TransactionChallenge
	Intent    Intent
	Message   string
}

// Audited is a completed and confirmed transaction.
type Audited struct {
	Record  AuditRecord
	Intent  Intent
	Message string
}

func (*Rejected) Status() RunStatus            { return RunRejected }
func (*Failed) Status() RunStatus              { return RunFailed }
func (*PendingConfirmation) Status() RunStatus { return RunPendingConfirmation }
func (*Audited) Status() RunStatus             { return RunAudited }

func (*Rejected) outcome()            {}
func (*Failed) outcome()              {}
func (*PendingConfirmation) outcome() {}
func (*Audited) outcome()             {}
