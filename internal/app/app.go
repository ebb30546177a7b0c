package app

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/usamatauqir381/questxcopilot/internal/audit"
	"github.com/usamatauqir381/questxcopilot/internal/cache"
	"github.com/usamatauqir381/questxcopilot/internal/config"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
	"github.com/usamatauqir381/questxcopilot/internal/service"
)

// App holds the storage backends every service is built on
type App struct {
	RespondentRepo repository.RespondentRepo
	OTPRepo        repository.OTPRepo
	CredentialRepo repository.CredentialRepo
	AssessmentRepo repository.AssessmentRepo
	QuestionRepo   repository.QuestionRepo
	AttemptRepo    repository.AttemptRepo
	MapRepo        repository.RandomizationRepo
	SubmissionRepo repository.SubmissionRepo
	ReportRepo     repository.ReportRepo

	SessionCache  cache.SessionCache
	DeliveryCache cache.DeliveryCache // nil disables the read-through cache
	Locker        cache.Locker
	Audit         audit.Log
}

// NewMongo wires MongoDB repositories with Redis locks and caches
func NewMongo(db *mongo.Database, rdb *redis.Client, auditLog audit.Log, cfg *config.Config) *App {
	return &App{
		RespondentRepo: repository.NewRespondentRepo(db),
		OTPRepo:        repository.NewOTPRepo(db),
		CredentialRepo: repository.NewCredentialRepo(db),
		AssessmentRepo: repository.NewAssessmentRepo(db),
		QuestionRepo:   repository.NewQuestionRepo(db),
		AttemptRepo:    repository.NewAttemptRepo(db),
		MapRepo:        repository.NewRandomizationRepo(db),
		SubmissionRepo: repository.NewSubmissionRepo(db),
		ReportRepo:     repository.NewReportRepo(db),

		SessionCache:  cache.NewSessionCache(rdb, cfg.SessionTTL),
		DeliveryCache: cache.NewDeliveryCache(rdb, cfg.DeliveryCacheTTL),
		Locker:        cache.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait),
		Audit:         auditLog,
	}
}

// NewMemory wires in-process storage for a single instance
func NewMemory(auditLog audit.Log, lockWait time.Duration) *App {
	store := repository.NewMemoryStore()
	return &App{
		RespondentRepo: store.Respondents(),
		OTPRepo:        store.OTPs(),
		CredentialRepo: store.Credentials(),
		AssessmentRepo: store.Assessments(),
		QuestionRepo:   store.Questions(),
		AttemptRepo:    store.Attempts(),
		MapRepo:        store.Maps(),
		SubmissionRepo: store.Submissions(),
		ReportRepo:     store.Reports(),

		SessionCache: cache.NewMemorySessionCache(),
		Locker:       cache.NewLocalLocker(lockWait),
		Audit:        auditLog,
	}
}

// Services is the assembled service graph
type Services struct {
	Auth         *service.AuthService
	Access       *service.AccessService
	Ledger       *service.LedgerService
	Randomizer   *service.Randomizer
	Finalizer    *service.Finalizer
	Monitor      *service.MonitorService
	Sessions     *service.SessionService
	Provisioning *service.ProvisioningService
	Reports      *service.ReportService
}

// NewServices builds every service over the app's storage
func (a *App) NewServices(cfg *config.Config, notifier service.Notifier, renderer service.Renderer) *Services {
	s := &Services{}
	s.Auth = service.NewAuthService(cfg.AdminUsername, cfg.AdminPassword, cfg.JWTSecret, cfg.CandidateTokenTTL)
	s.Access = service.NewAccessService(a.OTPRepo, a.RespondentRepo, a.CredentialRepo, a.Locker, notifier, service.AccessConfig{
		CodeTTL:            cfg.OTP.TTL,
		MaxSends:           cfg.OTP.MaxSends,
		SendWindow:         cfg.OTP.SendWindow,
		Digits:             cfg.OTP.Digits,
		AccessCodeRequired: cfg.AccessCode != "",
		AccessCode:         cfg.AccessCode,
		NotifyTimeout:      cfg.NotifyTimeout,
	})
	s.Ledger = service.NewLedgerService(a.AttemptRepo, a.SubmissionRepo, a.CredentialRepo, a.Locker)
	s.Randomizer = service.NewRandomizer(a.MapRepo, a.DeliveryCache, service.CryptoSource())
	s.Reports = service.NewReportService(a.ReportRepo, a.RespondentRepo, a.AssessmentRepo, renderer, cfg.RenderTimeout)
	s.Finalizer = service.NewFinalizer(s.Ledger, s.Randomizer, service.NewScorer(), a.QuestionRepo, a.AssessmentRepo, s.Reports, a.Audit)
	s.Monitor = service.NewMonitorService(a.AttemptRepo, a.AssessmentRepo, s.Finalizer, a.Audit)
	s.Sessions = service.NewSessionService(a.SessionCache, a.AssessmentRepo, a.QuestionRepo, a.SubmissionRepo,
		s.Ledger, s.Randomizer, s.Finalizer, s.Auth)
	s.Provisioning = service.NewProvisioningService(a.AssessmentRepo, a.QuestionRepo, a.CredentialRepo)
	return s
}

// SetBroadcaster injects the live feed into every service that publishes events
func (s *Services) SetBroadcaster(b service.Broadcaster) {
	s.Finalizer.SetBroadcaster(b)
	s.Monitor.SetBroadcaster(b)
	s.Sessions.SetBroadcaster(b)
}
