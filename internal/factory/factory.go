package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"admin-console/internal/apiclient"
	"admin-console/internal/audit"
	"admin-console/internal/authstore"
	"admin-console/internal/bucketing"
	"admin-console/internal/client"
	"admin-console/internal/config"
	"admin-console/internal/encryption"
	"admin-console/internal/hashing"
	redisrepo "admin-console/internal/repository/redis"
	"admin-console/internal/search"
	"admin-console/internal/service"
	"admin-console/internal/tls"
	"admin-console/internal/util"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	apiClient        *apiclient.Client
	redisClient      *client.RedisClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient
	kmsClient        *kms.Client

	// Managers
	hasher            *hashing.Hasher
	encryptionManager *encryption.EncryptionManager
	bucketingManager  *bucketing.BucketingManager

	// Audit and persistence
	recorder       *audit.Recorder
	auditSinks     []audit.Sink
	auditReports   *audit.ClickHouseSink
	userIndex      *search.UserIndex
	credentials    authstore.Store
	throttle       *redisrepo.LoginThrottle
	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	factory := &Factory{
		config: cfg,
	}

	if cfg.Server.EnableTLS {
		factory.tlsManager = tls.NewTLSManager(cfg.Server, cfg.Environment)
	}

	factory.apiClient = apiclient.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, util.Named("upstream"))

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeManagers(); err != nil {
		return nil, fmt.Errorf("failed to initialize managers: %w", err)
	}

	factory.initializeStores()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.String("upstream", cfg.Upstream.BaseURL),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("redis_enabled", factory.redisClient != nil),
		util.Bool("kms_enabled", factory.kmsClient != nil),
		util.Int("audit_sinks", len(factory.auditSinks)),
	)

	return factory, nil
}

// initializeClients connects the optional backends. Failures are fatal in
// production and downgrade to warnings elsewhere.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if f.config.Redis.URL != "" {
		if rc, err := client.NewRedisClient(f.config); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
		} else {
			f.redisClient = rc
			util.Info("Redis client initialized and healthy")
		}
	}

	// Kafka
	if f.config.Kafka.Enabled {
		f.kafkaProducer = client.NewKafkaProducer(f.config, util.Named("kafka"))
		f.auditSinks = append(f.auditSinks, audit.NewKafkaSink(f.kafkaProducer, f.config.Kafka.AuditTopic))
		util.Info("Kafka producer initialized", util.String("topic", f.config.Kafka.AuditTopic))
	}

	// Elasticsearch
	if f.config.Elasticsearch.Enabled {
		if es, err := client.NewElasticsearchClient(f.config, util.Named("elasticsearch")); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
		} else {
			f.esClient = es
			index := search.NewUserIndex(es, f.config.Elasticsearch.UsersIndex, util.Named("search"))
			if err := index.EnsureIndex(ctx); err != nil {
				initErrors = append(initErrors, fmt.Errorf("elasticsearch index: %w", err))
			} else {
				f.userIndex = index
				util.Info("Elasticsearch client initialized and healthy")
			}
		}
	}

	// ClickHouse
	if f.config.Clickhouse.Enabled {
		if ch, err := client.NewClickHouseClient(f.config); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
		} else {
			f.clickhouseClient = ch
			sink := audit.NewClickHouseSink(ch)
			if err := sink.EnsureSchema(ctx); err != nil {
				initErrors = append(initErrors, fmt.Errorf("clickhouse schema: %w", err))
			} else {
				f.auditReports = sink
				f.auditSinks = append(f.auditSinks, sink)
				util.Info("ClickHouse client initialized and healthy")
			}
		}
	}

	// KMS
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			initErrors = append(initErrors, fmt.Errorf("kms: %w", err))
		} else {
			f.kmsClient = kms.NewFromConfig(awsCfg)
			util.Info("KMS client initialized", util.String("region", f.config.KMS.Region))
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers initializes hashing, encryption, and bucketing managers
func (f *Factory) initializeManagers() error {
	hasher, err := hashing.NewHasher(f.config.Hashing.FingerprintKey)
	if err != nil {
		return fmt.Errorf("hasher: %w", err)
	}
	f.hasher = hasher

	var kmsAPI encryption.KMSAPI
	if f.kmsClient != nil {
		kmsAPI = f.kmsClient
	}
	f.encryptionManager = encryption.NewEncryptionManager(f.config.KMS, kmsAPI, util.Named("encryption"))
	f.bucketingManager = bucketing.NewBucketingManager(f.config.Bucketing.AuditBuckets)

	auditLogger := util.Named("audit")
	sinks := append([]audit.Sink{audit.NewLogSink(auditLogger)}, f.auditSinks...)
	f.recorder = audit.NewRecorder(f.hasher, f.bucketingManager, auditLogger, sinks...)

	util.Info("Managers initialized successfully",
		util.Int("audit_buckets", f.config.Bucketing.AuditBuckets),
		util.Bool("kms_envelope", kmsAPI != nil),
	)
	return nil
}

// initializeStores picks Redis-backed credentials and throttling when Redis
// is configured, and the in-process store otherwise.
func (f *Factory) initializeStores() {
	if f.redisClient == nil {
		f.credentials = authstore.NewMemoryStore(f.config.Login.CredentialTTL)
		util.Warn("Redis not configured - console sessions are kept in memory and OTP requests are not throttled")
		return
	}
	f.credentials = redisrepo.NewCredentialCache(f.redisClient, f.encryptionManager, f.config.Login.CredentialTTL, util.Named("credentials"))
	f.throttle = redisrepo.NewLoginThrottle(f.redisClient, f.config.Login.RequestLimit, f.config.Login.RequestWindow, util.Named("throttle"))
}

// ==============================
// Service Factory
// ==============================

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		var (
			throttle service.Throttle
			users    service.UserSearcher
			reports  service.AuditReporter
		)
		if f.throttle != nil {
			throttle = f.throttle
		}
		if f.userIndex != nil {
			users = f.userIndex
		}
		if f.auditReports != nil {
			reports = f.auditReports
		}
		f.serviceFactory = service.NewServiceFactory(
			f.config,
			f.apiClient,
			f.credentials,
			f.recorder,
			throttle,
			users,
			reports,
			util.Named("service"),
		)
	}
	return f.serviceFactory
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	}

	if f.esClient != nil {
		if err := f.esClient.HealthCheck(ctx); err != nil {
			healthErrors["elasticsearch"] = err
		}
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	if f.hasher == nil {
		healthErrors["hasher"] = fmt.Errorf("hasher not initialized")
	}
	if f.encryptionManager == nil {
		healthErrors["encryption"] = fmt.Errorf("encryption manager not initialized")
	}
	if f.credentials == nil {
		healthErrors["credentials"] = fmt.Errorf("credential store not initialized")
	}

	return healthErrors
}

// IsHealthy ignores Kafka; audit publishing is best effort.
func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		util.Info("Shutting down factory...")

		if f.serviceFactory != nil {
			f.serviceFactory.Cleanup()
			util.Info("Service factory cleaned up")
		}

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		if f.encryptionManager != nil {
			f.encryptionManager.ClearCache()
			util.Info("Encryption manager cache cleared")
		}

		util.Info("Factory shutdown completed")
		util.Sync()
	})

	return nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}
