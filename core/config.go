package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail string
		WorkDir          string

		Server   ServerConfig
		Database DatabaseConfig
		Import   ImportConfig
		Upload   UploadConfig
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
	}

	ImportConfig struct {
		MaxFileSize int64
		SampleSize  int
	}

	UploadConfig struct {
		MaxFileSize     int64
		Backend         string // local | gcs
		Bucket          string
		LocalDir        string
		CredentialsFile string
		PublicBaseURL   string
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) InMemory() bool {
	return c.Engine == "memory"
}

// NewConfig loads the configuration of the current ENV (DEV by default; TEST, QA, PROD).
// Values are read from `config/.env.<env>` when present, then overridden by `<ENV>_*` variables.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Env:              env,
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		WorkDir:          wd,
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Name:          v.GetString("database.name"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Import: ImportConfig{
			MaxFileSize: v.GetInt64("import.maxFileSize"),
			SampleSize:  v.GetInt("import.sampleSize"),
		},
		Upload: UploadConfig{
			MaxFileSize:     v.GetInt64("upload.maxFileSize"),
			Backend:         v.GetString("upload.backend"),
			Bucket:          v.GetString("upload.bucket"),
			LocalDir:        v.GetString("upload.localDir"),
			CredentialsFile: v.GetString("upload.credentialsFile"),
			PublicBaseURL:   v.GetString("upload.publicBaseURL"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Simcatalog")
	v.SetDefault("secretKey", "h5$k!2vq9w-7rz&0m@4jx)lp#3cn8e(t6u+ya1")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "simcatalog")
	v.SetDefault("database.password", "simcatalog")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.name", "simcatalog")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("import.maxFileSize", 10<<20)
	v.SetDefault("import.sampleSize", 5)

	v.SetDefault("upload.maxFileSize", 100<<20)
	v.SetDefault("upload.backend", "local")
	v.SetDefault("upload.bucket", "simulators")
	v.SetDefault("upload.localDir", filepath.Join(os.TempDir(), "simcatalog"))
	v.SetDefault("upload.credentialsFile", "")
	v.SetDefault("upload.publicBaseURL", "/v1/storage/simulators")
}
