package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/2beens/pushpullrun/internal/auth"
	"github.com/2beens/pushpullrun/internal/blobstore"
	"github.com/2beens/pushpullrun/internal/cache"
	"github.com/2beens/pushpullrun/internal/config"
	"github.com/2beens/pushpullrun/internal/db"
	"github.com/2beens/pushpullrun/internal/docstore"
	"github.com/2beens/pushpullrun/internal/store"
)

// Secrets are never kept in the config file, they come from the environment.
type Secrets struct {
	RedisPassword    string
	PostgresPassword string
	MongoURI         string
	S3AccessKey      string
	S3SecretKey      string
	SMTPUsername     string
	SMTPPassword     string
}

// SecretsFromEnv reads the PPR_* environment variables.
func SecretsFromEnv() Secrets {
	return Secrets{
		RedisPassword:    os.Getenv("PPR_REDIS_PASS"),
		PostgresPassword: os.Getenv("PPR_POSTGRES_PASS"),
		MongoURI:         os.Getenv("PPR_MONGO_URI"),
		S3AccessKey:      os.Getenv("PPR_S3_ACCESS_KEY"),
		S3SecretKey:      os.Getenv("PPR_S3_SECRET_KEY"),
		SMTPUsername:     os.Getenv("PPR_SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("PPR_SMTP_PASSWORD"),
	}
}

// Backends holds the store adapter and the identity provider built from the
// config, together with the connections they run on.
type Backends struct {
	Store    *store.Adapter
	Identity auth.IdentityProvider
	// Sessions is set only with the redis identity provider.
	Sessions *auth.RedisIdentityProvider
	// ImagesRoot is set when images are kept on the local disk.
	ImagesRoot string

	RedisClient *redis.Client
	DBPool      *pgxpool.Pool
	MongoClient *mongo.Client
	// Collectors are extra prometheus collectors of the backends (pgx pool stats).
	Collectors []prometheus.Collector
}

type NewBackendsParams struct {
	Config         *config.Config
	Secrets        Secrets
	TracingEnabled bool
}

// NewBackends connects to the configured document store, blob store and identity provider.
// With the memory store backend, nothing external is used at all.
func NewBackends(ctx context.Context, params NewBackendsParams) (_ *Backends, err error) {
	cfg := params.Config
	b := &Backends{}
	defer func() {
		if err != nil {
			b.Close(context.Background())
		}
	}()

	if cfg.StoreBackend != config.StoreBackendMemory {
		b.RedisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.Secrets.RedisPassword,
			DB:       0, // use default DB
		})
		rdbStatus := b.RedisClient.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}
	}

	docs, err := b.newDocStore(ctx, params)
	if err != nil {
		return nil, err
	}

	blobs, err := b.newBlobStore(ctx, params)
	if err != nil {
		return nil, err
	}

	var exercisesCache cache.Cache
	if cfg.ExerciseCacheSizeMB > 0 {
		exercisesCache = cache.NewFreeCache(cfg.ExerciseCacheSizeMB*1024*1024, cfg.ExerciseCacheTTL.Duration)
	}

	b.Store = store.NewAdapter(store.NewAdapterParams{
		Docs:           docs,
		Blobs:          blobs,
		ExercisesCache: exercisesCache,
		JPEGQuality:    cfg.JPEGQuality,
	})

	if b.RedisClient == nil {
		b.Identity = auth.NewMemoryIdentityProvider()
		return b, nil
	}

	var mailer auth.Mailer
	if cfg.SMTPHost != "" {
		mailer = auth.NewSMTPMailer(auth.NewSMTPMailerParams{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: params.Secrets.SMTPUsername,
			Password: params.Secrets.SMTPPassword,
			From:     cfg.SMTPFrom,
			ResetURL: cfg.PasswordResetURL,
		})
	} else {
		log.Warnln("smtp host not set, password reset tokens will only be logged")
	}
	b.Sessions = auth.NewRedisIdentityProvider(cfg.SessionTTL.Duration, b.RedisClient, mailer)
	b.Identity = b.Sessions

	return b, nil
}

func (b *Backends) newDocStore(ctx context.Context, params NewBackendsParams) (docstore.Store, error) {
	cfg := params.Config
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		return docstore.NewMemoryStore(), nil
	case config.StoreBackendRedis:
		return docstore.NewRedisStore(b.RedisClient, store.WorkoutOrderField), nil
	case config.StoreBackendPostgres:
		poolParams := db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBUser:         cfg.PostgresUser,
			DBPassword:     params.Secrets.PostgresPassword,
			TracingEnabled: params.TracingEnabled,
		}
		if err := db.Migrate(poolParams.ConnString()); err != nil {
			return nil, fmt.Errorf("migrate db: %w", err)
		}

		dbPool, err := db.NewDBPool(ctx, poolParams)
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}
		b.DBPool = dbPool
		b.Collectors = append(b.Collectors, pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		))
		return docstore.NewPsqlStore(dbPool), nil
	case config.StoreBackendMongo:
		if params.Secrets.MongoURI == "" {
			return nil, errors.New("mongo store backend needs a mongo uri")
		}
		mongoClient, err := db.NewMongoClient(ctx, params.Secrets.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("new mongo client: %w", err)
		}
		b.MongoClient = mongoClient
		mongoStore := docstore.NewMongoStore(mongoClient.Database(cfg.MongoDBName), store.WorkoutOrderField)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return mongoStore, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

func (b *Backends) newBlobStore(ctx context.Context, params NewBackendsParams) (blobstore.Store, error) {
	cfg := params.Config
	switch cfg.BlobBackend {
	case config.BlobBackendMemory:
		return blobstore.NewMemoryStore(cfg.BlobBaseURL), nil
	case config.BlobBackendDisk:
		diskStore, err := blobstore.NewDiskStore(cfg.BlobDiskRoot, cfg.BlobBaseURL)
		if err != nil {
			return nil, fmt.Errorf("new disk blob store: %w", err)
		}
		b.ImagesRoot = diskStore.RootPath()
		return diskStore, nil
	case config.BlobBackendS3:
		s3Client, err := blobstore.NewS3Client(ctx, blobstore.NewS3ClientParams{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: params.Secrets.S3AccessKey,
			SecretKey: params.Secrets.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("new s3 client: %w", err)
		}
		return blobstore.NewS3Store(s3Client, cfg.S3Bucket, cfg.S3PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown blob backend: %s", cfg.BlobBackend)
	}
}

// Close releases the connections. Safe to call on partially built backends.
func (b *Backends) Close(ctx context.Context) {
	if b.RedisClient != nil {
		if err := b.RedisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if b.DBPool != nil {
		log.Debugln("closing db pool ...")
		b.DBPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if b.MongoClient != nil {
		if err := b.MongoClient.Disconnect(ctx); err != nil {
			log.Errorf("failed to disconnect mongo client: %s", err)
		}
	}
}
