package domain

import "errors"

var (
	// ErrKeyNotFound is returned by storage adapters for an absent key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrBankUnavailable wraps transport failures while fetching the question bank.
	ErrBankUnavailable = errors.New("question bank unavailable")
	// ErrBankMalformed indicates the bank payload is not a JSON array of questions.
	ErrBankMalformed = errors.New("question bank is not an array")
	// ErrBankEmpty indicates the bank payload decoded to zero questions.
	ErrBankEmpty = errors.New("question bank is empty")

	// ErrNoChoiceSelected is returned when grading without a selected choice.
	ErrNoChoiceSelected = errors.New("select a choice first")
	// ErrNoDifficulty is returned when starting with an empty difficulty set.
	ErrNoDifficulty = errors.New("select at least one difficulty")
	// ErrNoMatchingQuestions is returned when the filter selects nothing.
	ErrNoMatchingQuestions = errors.New("no questions match the filter")
	// ErrPresetNameRequired is returned when saving a preset without a name.
	ErrPresetNameRequired = errors.New("preset name is required")
	// ErrPresetNotFound is returned when deleting or applying an unknown preset.
	ErrPresetNotFound = errors.New("preset not found")
	// ErrPresetInUse is returned when deleting a preset a live locked run is forced to.
	ErrPresetInUse = errors.New("preset is in use by a running locked quiz")
	// ErrInvalidImport is returned for import text that is not a JSON object of presets.
	ErrInvalidImport = errors.New("import must be a JSON object of name to settings")

	// ErrLocked is returned for configuration changes while running in locked mode.
	ErrLocked = errors.New("configuration is locked")
	// ErrNotLockedMode is returned for locked-only actions in the unlocked runner.
	ErrNotLockedMode = errors.New("only available in locked mode")
	// ErrRunInProgress is returned for setup actions while a run is in progress.
	ErrRunInProgress = errors.New("a quiz is already running")
	// ErrTakenOver is returned for every action after another tab took the run lease.
	ErrTakenOver = errors.New("stopped because another tab took over")
	// ErrNotRunning is returned for quiz actions while no run is in progress.
	ErrNotRunning = errors.New("no quiz is running")
	// ErrAlreadyChecked is returned when grading a question twice.
	ErrAlreadyChecked = errors.New("question already graded")
	// ErrNotChecked is returned when advancing past an ungraded question.
	ErrNotChecked = errors.New("question not graded yet")
	// ErrNotFinished is returned for result actions before the run has finished.
	ErrNotFinished = errors.New("quiz is not finished")
	// ErrNothingToRetry is returned when no wrong answers can be retried.
	ErrNothingToRetry = errors.New("no wrong answers to retry")
	// ErrNoResumeCandidate is returned when resume is requested without a pending snapshot.
	ErrNoResumeCandidate = errors.New("no session to resume")
)
