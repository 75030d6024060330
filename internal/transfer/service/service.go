// Package service coordinates the transfer saga. A cross-border transfer is
// four non-atomic steps across independent providers (debit, mint, redeem,
// payout); a domestic transfer is a pull and a push on one provider. There is
// no cross-provider commit, so correctness rests on three things: steps run
// strictly sequentially, every provider call carries a deterministic
// idempotency key, and failure partway maps to an explicit compensation plan
// rather than an ad hoc unwind.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"crossrail/internal/accounts"
	"crossrail/internal/rails"
	"crossrail/internal/rails/idempotency"
	"crossrail/internal/transfer/events"
	"crossrail/internal/transfer/models"
	"crossrail/internal/transfer/service/metrics"
	"crossrail/internal/transfer/store"
)

// defaultChain is the settlement chain for the bridge asset.
const defaultChain = "ETH"

// Service drives transfer sagas. It holds only read-only collaborators, so
// any number of sagas may run concurrently through one instance.
type Service struct {
	selector  *rails.Selector
	keys      *idempotency.Manager
	accounts  accounts.Resolver
	recorder  store.Recorder
	events    events.Publisher
	metrics   *metrics.Metrics
	custodial map[string]string
	chain     string
	logger    *slog.Logger
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithChain overrides the bridge settlement chain.
func WithChain(chain string) Option {
	return func(s *Service) { s.chain = chain }
}

// WithCustodialAccount registers the bridge redemption account for a
// destination country. Redemptions settle into this account; the payout step
// moves the money on to the recipient.
func WithCustodialAccount(countryCode, accountID string) Option {
	return func(s *Service) {
		s.custodial[strings.ToUpper(strings.TrimSpace(countryCode))] = accountID
	}
}

func New(selector *rails.Selector, keys *idempotency.Manager, resolver accounts.Resolver, recorder store.Recorder, opts ...Option) *Service {
	s := &Service{
		selector:  selector,
		keys:      keys,
		accounts:  resolver,
		recorder:  recorder,
		events:    events.Noop{},
		custodial: make(map[string]string),
		chain:     defaultChain,
		logger:    slog.Default(),
		tracer:    otel.Tracer("crossrail/internal/transfer/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// saga carries everything one invocation needs, resolved up front so no
// money moves before every later step's inputs are known to exist.
type saga struct {
	req          models.TransferRequest
	outcome      *models.TransferOutcome
	source       rails.Adapter
	dest         rails.Adapter
	bridge       rails.BridgeAdapter
	sourceAcct   rails.Account
	destAcct     rails.Account
	destCurrency string
	custodialID  string
}

// Execute runs one transfer saga to a terminal outcome. Pre-flight failures
// (invalid request, unsupported corridor, unknown account) return an error
// before any money moves; once the saga starts, the caller always receives a
// finalized TransferOutcome and a nil error, with saga failures expressed in
// the outcome's status and errors list.
func (s *Service) Execute(ctx context.Context, req models.TransferRequest) (*models.TransferOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "transfer.execute", trace.WithAttributes(
		attribute.String("transfer.request_id", req.ID),
		attribute.String("transfer.source_country", req.SourceCountry),
		attribute.String("transfer.destination_country", req.DestinationCountry),
	))
	defer span.End()

	sg, err := s.prepare(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sg.outcome = models.NewOutcome(req.ID)
	s.publish(ctx, events.TypeStarted, sg)

	path := "crossborder"
	if req.Domestic() {
		path = "domestic"
	}
	s.logger.Info("transfer started",
		"request_id", req.ID,
		"path", path,
		"amount", req.Amount.String(),
		"currency", req.Currency,
		"corridor", corridor(req))

	start := time.Now()
	if req.Domestic() {
		s.runDomestic(ctx, sg)
	} else {
		s.runCrossBorder(ctx, sg)
	}
	s.metrics.ObserveSaga(path, time.Since(start))

	span.SetAttributes(attribute.String("transfer.status", string(sg.outcome.Status)))
	return sg.outcome, nil
}

// prepare resolves adapters, accounts and currencies for both legs.
func (s *Service) prepare(ctx context.Context, req models.TransferRequest) (*saga, error) {
	sourceCurrency, err := rails.CurrencyFor(req.SourceCountry)
	if err != nil {
		return nil, fmt.Errorf("source country %q: %w", req.SourceCountry, err)
	}
	if !strings.EqualFold(req.Currency, sourceCurrency) {
		return nil, fmt.Errorf("currency %s does not match %s settlement currency %s",
			req.Currency, strings.ToUpper(req.SourceCountry), sourceCurrency)
	}

	sg := &saga{req: req}

	sg.source, err = s.selector.AdapterFor(req.SourceCountry)
	if err != nil {
		return nil, err
	}
	sourceDetails, err := s.accounts.Resolve(ctx, req.RequesterID, req.SourceCountry)
	if err != nil {
		return nil, err
	}
	sg.sourceAcct, err = s.selector.AccountFor(req.SourceCountry, sourceDetails)
	if err != nil {
		return nil, err
	}

	// The recipient defaults to the requester moving their own money; a
	// third-party recipient rides in on metadata.
	recipient := req.RequesterID
	if id := req.Metadata["recipient_id"]; id != "" {
		recipient = id
	}
	destDetails, err := s.accounts.Resolve(ctx, recipient, req.DestinationCountry)
	if err != nil {
		return nil, err
	}
	sg.destAcct, err = s.selector.AccountFor(req.DestinationCountry, destDetails)
	if err != nil {
		return nil, err
	}

	if req.Domestic() {
		sg.dest = sg.source
		sg.destCurrency = sourceCurrency
		return sg, nil
	}

	sg.dest, err = s.selector.AdapterFor(req.DestinationCountry)
	if err != nil {
		return nil, err
	}
	sg.bridge, err = s.selector.Bridge()
	if err != nil {
		return nil, err
	}
	sg.destCurrency, err = rails.CurrencyFor(req.DestinationCountry)
	if err != nil {
		return nil, fmt.Errorf("destination country %q: %w", req.DestinationCountry, err)
	}
	cc := strings.ToUpper(strings.TrimSpace(req.DestinationCountry))
	sg.custodialID = s.custodial[cc]
	if sg.custodialID == "" {
		return nil, fmt.Errorf("no custodial redemption account configured for %s", cc)
	}
	return sg, nil
}

// runCrossBorder drives the four-step saga. Steps are strictly sequential;
// the first failure stops forward progress and hands off to compensation.
func (s *Service) runCrossBorder(ctx context.Context, sg *saga) {
	steps := []struct {
		step models.Step
		fn   func(context.Context, *saga) (models.StepResult, error)
	}{
		{models.StepDebit, s.debit},
		{models.StepMint, s.mint},
		{models.StepRedeem, s.redeem},
		{models.StepPayout, s.payout},
	}
	for _, st := range steps {
		if !s.runStep(ctx, sg, st.step, st.fn) {
			s.compensate(ctx, sg)
			return
		}
	}
	s.finalize(ctx, sg, models.TransferCompleted)
}

// runDomestic is the pull-then-push path on a single provider. It is a
// distinct flow, not a degenerate four-step saga: there is no bridge leg and
// the only compensation is refunding the debit.
func (s *Service) runDomestic(ctx context.Context, sg *saga) {
	if !s.runStep(ctx, sg, models.StepDebit, s.debit) {
		s.compensate(ctx, sg)
		return
	}
	if !s.runStep(ctx, sg, models.StepPayout, s.payout) {
		s.compensate(ctx, sg)
		return
	}
	s.finalize(ctx, sg, models.TransferCompleted)
}

func (s *Service) runStep(ctx context.Context, sg *saga, step models.Step, fn func(context.Context, *saga) (models.StepResult, error)) bool {
	ctx, span := s.tracer.Start(ctx, "transfer.step."+string(step))
	defer span.End()

	start := time.Now()
	result, err := fn(ctx, sg)
	s.metrics.ObserveStep(string(step), time.Since(start))

	if err != nil {
		span.RecordError(err)
		sg.outcome.AppendError(fmt.Errorf("%s: %w", step, err))
		failed := models.StepResult{Step: step, Status: rails.StatusFailed}
		sg.outcome.AppendStep(failed)
		s.recordStep(ctx, sg.req.ID, failed)
		s.logger.Warn("saga step failed",
			"request_id", sg.req.ID,
			"step", step,
			"error", err)
		return false
	}

	sg.outcome.AppendStep(result)
	s.recordStep(ctx, sg.req.ID, result)
	return true
}

func (s *Service) debit(ctx context.Context, sg *saga) (models.StepResult, error) {
	res, err := sg.source.Pull(ctx, rails.PullRequest{
		Amount:         sg.req.Amount,
		Currency:       sg.req.Currency,
		Account:        sg.sourceAcct,
		IdempotencyKey: s.keys.KeyFor(sg.req.ID, string(models.StepDebit)),
	})
	if err != nil {
		return models.StepResult{}, err
	}
	return stepFromTransaction(models.StepDebit, res), nil
}

func (s *Service) mint(ctx context.Context, sg *saga) (models.StepResult, error) {
	res, err := sg.bridge.Mint(ctx, rails.MintRequest{
		Amount:         sg.req.Amount,
		Currency:       sg.req.Currency,
		Chain:          s.chain,
		IdempotencyKey: s.keys.KeyFor(sg.req.ID, string(models.StepMint)),
	})
	if err != nil {
		return models.StepResult{}, err
	}
	return stepFromBridge(models.StepMint, sg.bridge.Name(), res), nil
}

func (s *Service) redeem(ctx context.Context, sg *saga) (models.StepResult, error) {
	res, err := sg.bridge.Redeem(ctx, rails.RedeemRequest{
		Amount:               sg.req.Amount,
		Currency:             sg.destCurrency,
		DestinationAccountID: sg.custodialID,
		IdempotencyKey:       s.keys.KeyFor(sg.req.ID, string(models.StepRedeem)),
	})
	if err != nil {
		return models.StepResult{}, err
	}
	return stepFromBridge(models.StepRedeem, sg.bridge.Name(), res), nil
}

func (s *Service) payout(ctx context.Context, sg *saga) (models.StepResult, error) {
	res, err := sg.dest.Push(ctx, rails.PushRequest{
		Amount:         sg.req.Amount,
		Currency:       sg.destCurrency,
		Account:        sg.destAcct,
		IdempotencyKey: s.keys.KeyFor(sg.req.ID, string(models.StepPayout)),
		PreferredRail:  s.selector.ChooseRail(sg.req.Amount, sg.req.PreferredRail, sg.req.SmartRails),
		KeyForRail: func(rail rails.Rail) string {
			return s.keys.KeyForRailAttempt(sg.req.ID, string(models.StepPayout), rail)
		},
	})
	if err != nil {
		return models.StepResult{}, err
	}
	return stepFromTransaction(models.StepPayout, res), nil
}

// compensate maps the failed saga onto a terminal status per the plan
// derived from which steps succeeded.
func (s *Service) compensate(ctx context.Context, sg *saga) {
	switch PlanFor(sg.outcome) {
	case PlanRefund:
		s.refund(ctx, sg)
	case PlanMintStranded:
		mint, _ := sg.outcome.ResultFor(models.StepMint)
		sg.outcome.AppendError(rails.ErrIndeterminateState)
		s.logger.Error("funds stranded in bridge asset, manual review required",
			"severity", "critical",
			"request_id", sg.req.ID,
			"mint_tx_id", mint.ProviderTxID,
			"amount", sg.req.Amount.String(),
			"currency", sg.req.Currency)
		s.finalize(ctx, sg, models.TransferIndeterminate)
	case PlanPayoutFailed:
		s.logger.Error("redemption complete but payout failed, manual retry required",
			"request_id", sg.req.ID,
			"amount", sg.req.Amount.String(),
			"currency", sg.destCurrency)
		s.finalize(ctx, sg, models.TransferPayoutFailed)
	default:
		s.finalize(ctx, sg, models.TransferFailed)
	}
}

// refund pushes the debited amount back to the source account through the
// same selector path as the debit. Best effort: a refund failure leaves the
// transfer failed with the refund error appended.
func (s *Service) refund(ctx context.Context, sg *saga) {
	res, err := sg.source.Push(ctx, rails.PushRequest{
		Amount:         sg.req.Amount,
		Currency:       sg.req.Currency,
		Account:        sg.sourceAcct,
		IdempotencyKey: s.keys.KeyFor(sg.req.ID, string(models.StepRefund)),
		KeyForRail: func(rail rails.Rail) string {
			return s.keys.KeyForRailAttempt(sg.req.ID, string(models.StepRefund), rail)
		},
	})
	if err != nil {
		sg.outcome.AppendError(fmt.Errorf("refund: %w", err))
		s.logger.Error("refund failed, debit left uncompensated",
			"request_id", sg.req.ID,
			"amount", sg.req.Amount.String(),
			"currency", sg.req.Currency,
			"error", err)
		s.finalize(ctx, sg, models.TransferFailed)
		return
	}
	result := stepFromTransaction(models.StepRefund, res)
	sg.outcome.AppendStep(result)
	s.recordStep(ctx, sg.req.ID, result)
	s.finalize(ctx, sg, models.TransferRefunded)
}

func (s *Service) finalize(ctx context.Context, sg *saga, status models.TransferStatus) {
	if err := sg.outcome.Finalize(status); err != nil {
		s.logger.Error("finalize outcome", "request_id", sg.req.ID, "error", err)
		return
	}
	s.metrics.IncrementOutcome(string(status), corridor(sg.req))
	if err := s.recorder.Finalize(ctx, sg.outcome); err != nil {
		s.logger.Error("record outcome", "request_id", sg.req.ID, "error", err)
	}
	s.publish(ctx, events.TypeFinalized, sg)
	s.logger.Info("transfer finalized",
		"request_id", sg.req.ID,
		"status", status,
		"steps", len(sg.outcome.Steps))
}

// recordStep is fire-and-forget: the store is an audit surface, never a
// mid-saga source of truth, so a write failure is logged and the saga
// proceeds.
func (s *Service) recordStep(ctx context.Context, requestID string, result models.StepResult) {
	if err := s.recorder.RecordStep(ctx, requestID, result); err != nil {
		s.logger.Error("record step",
			"request_id", requestID,
			"step", result.Step,
			"error", err)
	}
}

func (s *Service) publish(ctx context.Context, typ events.Type, sg *saga) {
	s.events.Publish(ctx, events.Event{
		EventID:            uuid.NewString(),
		Type:               typ,
		RequestID:          sg.req.ID,
		Status:             sg.outcome.Status,
		Amount:             sg.req.Amount.String(),
		Currency:           sg.req.Currency,
		SourceCountry:      strings.ToUpper(sg.req.SourceCountry),
		DestinationCountry: strings.ToUpper(sg.req.DestinationCountry),
		NeedsOperator:      sg.outcome.Status.NeedsOperator(),
		OccurredAt:         time.Now().UTC(),
	})
}

func corridor(req models.TransferRequest) string {
	return strings.ToUpper(req.SourceCountry) + "-" + strings.ToUpper(req.DestinationCountry)
}

func stepFromTransaction(step models.Step, res *rails.TransactionResult) models.StepResult {
	result := models.StepResult{
		Step:         step,
		ProviderTxID: res.ProviderTxID,
		Provider:     res.Provider,
		Rail:         res.Rail,
		Status:       res.Status,
		Metadata:     res.Metadata,
	}
	if res.Status == rails.StatusCompleted {
		now := time.Now().UTC()
		result.SettledAt = &now
	}
	return result
}

func stepFromBridge(step models.Step, provider string, res *rails.BridgeResult) models.StepResult {
	result := models.StepResult{
		Step:         step,
		ProviderTxID: res.ProviderTxID,
		Provider:     provider,
		Status:       res.Status,
		Metadata:     res.Metadata,
	}
	if res.Status == rails.StatusCompleted {
		now := time.Now().UTC()
		result.SettledAt = &now
	}
	return result
}
