package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/program-generator/internal/config"
	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/metrics"
	"alcyxob/program-generator/internal/repository"
)

// MaxTotalPhases bounds the program length a caller may request.
const MaxTotalPhases = maxPhaseNumber

// GeneratePhaseRequest is one phase-generation call. The caller issues
// phases strictly in order, passing back the programId it received for phase 1.
type GeneratePhaseRequest struct {
	RequestID          string
	UserID             string
	Profile            *domain.UserProfile
	IntakeData         *domain.IntakeData
	PhaseNumber        int
	TotalPhases        int
	PreviousPhases     []domain.ValidatedPhase
	ProgramID          string
	ProgramName        string
	ProgramDescription string
	Context            *domain.GenerationContext
}

// PhaseMetadata describes how a phase was produced.
type PhaseMetadata struct {
	PhaseNumber      int    `json:"phaseNumber"`
	TotalPhases      int    `json:"totalPhases"`
	GenerationTimeMs int64  `json:"generationTimeMs"`
	TokensUsed       int    `json:"tokensUsed"`
	Model            string `json:"model"`
}

// GeneratePhaseResult is a persisted phase.
type GeneratePhaseResult struct {
	Phase     *domain.ValidatedPhase
	ProgramID primitive.ObjectID
	Metadata  PhaseMetadata
}

// PhaseOrchestrator is the per-call controller for phase generation.
type PhaseOrchestrator interface {
	GeneratePhase(ctx context.Context, req GeneratePhaseRequest) (*GeneratePhaseResult, error)
}

// --- Call states ---

type phaseState string

const (
	statePending    phaseState = "pending_phase"
	stateGenerating phaseState = "generating"
	stateValidating phaseState = "validating"
	statePersisting phaseState = "persisting"
	stateDone       phaseState = "done"
	stateFailed     phaseState = "failed"
)

// phaseRun tracks one call through its states.
type phaseRun struct {
	logger *slog.Logger
	state  phaseState
}

func (r *phaseRun) to(next phaseState) {
	r.logger.Debug("Phase state transition", "from", r.state, "to", next)
	r.state = next
}

func (r *phaseRun) fail(err error) error {
	r.logger.Debug("Phase state transition", "from", r.state, "to", stateFailed, "reason", err.Error())
	r.state = stateFailed
	return err
}

// OrchestratorOption configures optional collaborators.
type OrchestratorOption func(*phaseOrchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *phaseOrchestrator) { o.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *phaseOrchestrator) { o.metrics = m }
}

// WithUsageRecorder enables usage logging of model-backed calls.
func WithUsageRecorder(r UsageRecorder) OrchestratorOption {
	return func(o *phaseOrchestrator) { o.usage = r }
}

// WithFeedback enables check-in feedback for regenerations.
func WithFeedback(f FeedbackService) OrchestratorOption {
	return func(o *phaseOrchestrator) { o.feedback = f }
}

type phaseOrchestrator struct {
	tx          repository.Transactor
	credits     CreditService
	generator   PhaseGenerator
	persistence PersistenceService
	programRepo repository.ProgramRepository
	planRepo    repository.WorkoutPlanRepository
	cfg         config.GenerationConfig

	feedback FeedbackService
	usage    UsageRecorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewPhaseOrchestrator wires the pipeline.
func NewPhaseOrchestrator(
	tx repository.Transactor,
	credits CreditService,
	generator PhaseGenerator,
	persistence PersistenceService,
	programRepo repository.ProgramRepository,
	planRepo repository.WorkoutPlanRepository,
	cfg config.GenerationConfig,
	opts ...OrchestratorOption,
) PhaseOrchestrator {
	o := &phaseOrchestrator{
		tx:          tx,
		credits:     credits,
		generator:   generator,
		persistence: persistence,
		programRepo: programRepo,
		planRepo:    planRepo,
		cfg:         cfg,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// phasePlan is the validated input of one call.
type phasePlan struct {
	profile   domain.UserProfile
	program   *domain.Program // nil when phase 1 creates a new program
	prior     []domain.PhaseSummary
	isInitial bool
}

// GeneratePhase runs ValidateRequest, [CheckCredit], SanitizeProfile,
// Generate, Convert, Persist, [ChargeCredit], Respond. Bracketed steps run on
// phase 1 only. A failed call leaves the database unchanged.
func (o *phaseOrchestrator) GeneratePhase(ctx context.Context, req GeneratePhaseRequest) (*GeneratePhaseResult, error) {
	run := &phaseRun{
		logger: o.logger.With("requestId", req.RequestID, "userId", req.UserID, "phase", req.PhaseNumber),
		state:  statePending,
	}

	// 1. Validate the request and load authoritative history.
	plan, err := o.validate(ctx, req)
	if err != nil {
		return nil, run.fail(err)
	}

	// 2. Quota check before any tokens are spent.
	if plan.isInitial {
		status, err := o.credits.Evaluate(ctx, req.UserID)
		if err != nil {
			return nil, run.fail(fmt.Errorf("evaluate credits: %w", err))
		}
		if !status.Allowed {
			o.metrics.CreditDenied()
			return nil, run.fail(&QuotaExceededError{Used: status.Used, Limit: status.Limit})
		}
	}

	// 3. Sanitize. Findings never block.
	profile, report := SanitizeProfile(plan.profile)
	logSuspiciousInput(run.logger, req.UserID, report)
	risk := HighestRisk(report)
	for _, f := range report {
		if f.RiskLevel != RiskLow {
			o.metrics.SanitizerFinding(string(f.RiskLevel))
		}
	}

	input := PromptInput{
		Profile:       profile,
		PhaseNumber:   req.PhaseNumber,
		TotalPhases:   req.TotalPhases,
		PriorPhases:   plan.prior,
		WeeksPerPhase: o.cfg.WeeksPerPhase,
		Context:       sanitizeContext(req.Context),
	}
	if input.Context.IsRegeneration() {
		input.Feedback = o.loadFeedback(ctx, run.logger, req.UserID)
	}

	// 4. Generate and convert.
	run.to(stateGenerating)
	start := time.Now()
	gen, err := o.generator.Generate(ctx, input)
	elapsed := time.Since(start)
	if err != nil {
		o.metrics.PhaseCompleted(domain.OutcomeFailed)
		o.recordUsage(req, nil, gen, err, elapsed, risk)
		run.logger.Error("Phase generation failed", "error", err)
		return nil, run.fail(err)
	}
	run.to(stateValidating)
	o.metrics.GenerationObserved(elapsed, gen.TokensUsed)

	// 5. Persist, then charge, in one transaction.
	run.to(statePersisting)
	programID, err := o.persist(ctx, req, plan, profile, gen.Phase)
	if err != nil {
		o.metrics.PhaseCompleted(domain.OutcomeFailed)
		o.recordUsage(req, nil, gen, err, elapsed, risk)
		run.logger.Error("Phase persistence failed", "error", err)
		return nil, run.fail(err)
	}
	if plan.isInitial {
		o.metrics.CreditCharged()
	}

	// 6. Respond.
	o.metrics.PhaseCompleted(domain.OutcomeSuccess)
	o.recordUsage(req, &programID, gen, nil, elapsed, risk)
	run.to(stateDone)

	return &GeneratePhaseResult{
		Phase:     gen.Phase,
		ProgramID: programID,
		Metadata: PhaseMetadata{
			PhaseNumber:      req.PhaseNumber,
			TotalPhases:      req.TotalPhases,
			GenerationTimeMs: elapsed.Milliseconds(),
			TokensUsed:       gen.TokensUsed,
			Model:            gen.Model,
		},
	}, nil
}

func (o *phaseOrchestrator) validate(ctx context.Context, req GeneratePhaseRequest) (*phasePlan, error) {
	if req.UserID == "" {
		return nil, &AuthError{Msg: "user identity is required"}
	}
	if req.TotalPhases < 1 || req.TotalPhases > MaxTotalPhases {
		return nil, validationErrorf("totalPhases must be between 1 and %d", MaxTotalPhases)
	}
	if req.PhaseNumber < 1 || req.PhaseNumber > req.TotalPhases {
		return nil, validationErrorf("phaseNumber must be between 1 and %d", req.TotalPhases)
	}

	plan := &phasePlan{isInitial: req.PhaseNumber == 1}
	profile, hasProfile := requestProfile(req)

	if plan.isInitial {
		if !hasProfile {
			return nil, validationErrorf("profile or intakeData is required for phase 1")
		}
		plan.profile = profile
		if req.ProgramID != "" {
			program, err := o.loadProgram(ctx, req.ProgramID, req.UserID)
			if err != nil {
				return nil, err
			}
			persisted, err := o.planRepo.GetByProgramID(ctx, program.ID)
			if err != nil {
				return nil, fmt.Errorf("load phases: %w", err)
			}
			if len(persisted) > 0 {
				return nil, validationErrorf("phase 1 has already been generated")
			}
			plan.program = program
		}
		return plan, nil
	}

	if req.ProgramID == "" {
		return nil, validationErrorf("programId is required for phase %d", req.PhaseNumber)
	}
	program, err := o.loadProgram(ctx, req.ProgramID, req.UserID)
	if err != nil {
		return nil, err
	}
	if program.TotalPhases != 0 && program.TotalPhases != req.TotalPhases {
		return nil, validationErrorf("program has %d phases, request says %d", program.TotalPhases, req.TotalPhases)
	}
	plan.program = program

	persisted, err := o.planRepo.GetByProgramID(ctx, program.ID)
	if err != nil {
		return nil, fmt.Errorf("load phases: %w", err)
	}
	if err := checkContiguous(persisted, req.PhaseNumber); err != nil {
		return nil, err
	}

	switch {
	case o.cfg.TrustClientHistory && len(req.PreviousPhases) > 0:
		for i := range req.PreviousPhases {
			plan.prior = append(plan.prior, req.PreviousPhases[i].Summary())
		}
	default:
		for i := range persisted {
			plan.prior = append(plan.prior, persisted[i].Summary())
		}
	}

	switch {
	case hasProfile:
		plan.profile = profile
	case program.Profile != nil:
		plan.profile = *program.Profile
	default:
		return nil, validationErrorf("profile is required: program %s has no stored profile", program.ID.Hex())
	}
	return plan, nil
}

// checkContiguous requires the persisted phases to be exactly 1..next-1.
func checkContiguous(persisted []domain.WorkoutPlan, next int) error {
	if len(persisted) >= next {
		return validationErrorf("phase %d has already been generated", next)
	}
	for i := range persisted {
		if persisted[i].PhaseNumber != i+1 {
			return validationErrorf("program phases are not contiguous: expected phase %d, found %d", i+1, persisted[i].PhaseNumber)
		}
	}
	if len(persisted) != next-1 {
		return validationErrorf("phase %d requested but only %d phases exist", next, len(persisted))
	}
	return nil
}

// loadProgram resolves a caller-owned program. Another user's program is
// reported as not found.
func (o *phaseOrchestrator) loadProgram(ctx context.Context, rawID, userID string) (*domain.Program, error) {
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, validationErrorf("invalid programId %q", rawID)
	}
	program, err := o.programRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, validationErrorf("program %s not found", rawID)
	}
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	if program.OwnerID != userID {
		return nil, validationErrorf("program %s not found", rawID)
	}
	return program, nil
}

func requestProfile(req GeneratePhaseRequest) (domain.UserProfile, bool) {
	switch {
	case req.Profile != nil:
		return *req.Profile, true
	case req.IntakeData != nil:
		return ConvertIntake(*req.IntakeData), true
	}
	return domain.UserProfile{}, false
}

// sanitizeContext neutralizes the free text of a regeneration context.
func sanitizeContext(gc *domain.GenerationContext) *domain.GenerationContext {
	if gc == nil {
		return nil
	}
	out := &domain.GenerationContext{GenerationType: gc.GenerationType}
	out.Modifications, _, _ = SanitizeText(gc.Modifications)
	for _, name := range gc.PreviousPrograms {
		clean, _, _ := SanitizeText(name)
		if clean != "" {
			out.PreviousPrograms = append(out.PreviousPrograms, clean)
		}
	}
	return out
}

func (o *phaseOrchestrator) loadFeedback(ctx context.Context, logger *slog.Logger, userID string) string {
	if o.feedback == nil {
		return ""
	}
	fc, err := o.feedback.GetFeedback(ctx, userID)
	if err != nil {
		logger.Warn("Failed to load check-in feedback, continuing without it", "error", err)
		return ""
	}
	return o.feedback.FormatForPrompt(fc)
}

// persist writes the program (phase 1 without programId), the phase subtree
// and, on phase 1, the credit charge. Any failure rolls everything back.
func (o *phaseOrchestrator) persist(ctx context.Context, req GeneratePhaseRequest, plan *phasePlan, profile domain.UserProfile, phase *domain.ValidatedPhase) (primitive.ObjectID, error) {
	var programID primitive.ObjectID
	if plan.program != nil {
		programID = plan.program.ID
	}

	err := o.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if plan.program == nil {
			snapshot := profile
			id, err := o.persistence.CreateProgram(ctx, &domain.Program{
				OwnerID:     req.UserID,
				Name:        req.ProgramName,
				Description: req.ProgramDescription,
				TotalPhases: req.TotalPhases,
				Profile:     &snapshot,
			})
			if err != nil {
				return &PersistenceError{Op: "create program", Err: err}
			}
			programID = id
		}

		if _, err := o.persistence.WritePhase(ctx, programID, phase, req.UserID); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return validationErrorf("phase %d has already been generated", phase.PhaseNumber)
			}
			return &PersistenceError{Op: "write phase", Err: err}
		}

		if plan.isInitial {
			if err := o.credits.Charge(ctx, req.UserID); err != nil {
				var quota *QuotaExceededError
				if errors.As(err, &quota) {
					return err
				}
				return &PersistenceError{Op: "charge credit", Err: err}
			}
		}
		return nil
	})
	if err != nil {
		var ve *ValidationError
		var pe *PersistenceError
		var qe *QuotaExceededError
		if !errors.As(err, &ve) && !errors.As(err, &pe) && !errors.As(err, &qe) {
			err = &PersistenceError{Op: "transaction", Err: err}
		}
		return primitive.NilObjectID, err
	}
	return programID, nil
}

func (o *phaseOrchestrator) recordUsage(req GeneratePhaseRequest, programID *primitive.ObjectID, gen *GenerationResult, err error, elapsed time.Duration, risk RiskLevel) {
	if o.usage == nil {
		return
	}
	rec := UsageRecord{
		RequestID:   req.RequestID,
		UserID:      req.UserID,
		ProgramID:   programID,
		PhaseNumber: req.PhaseNumber,
		Duration:    elapsed,
		Err:         err,
		InputRisk:   risk,
	}
	var ge *GenerationError
	switch {
	case gen != nil:
		rec.Model = gen.Model
		rec.TokensUsed = gen.TokensUsed
		rec.Attempts = gen.Attempts
		rec.Transcript = gen.Transcript
	case errors.As(err, &ge):
		rec.Model = ge.Model
		rec.TokensUsed = ge.TokensUsed
		rec.Attempts = ge.Attempts
		rec.Transcript = ge.Transcript
	}
	o.usage.Record(rec)
}
