package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env         string
	Port        string
	DatabaseURL string
	RedisURL    string

	// Chain / contract service
	RPCEndpoint     string // JSON-RPC endpoint of the certificate contract service
	ContractAddress string
	Network         string // explorer host used to build tx links, e.g. polygonscan.com
	IssuerRole      string // role hash checked/granted on chain
	AccountAddress  string // issuer wallet used for bulk flows
	RetryDelay      time.Duration

	// Certificate number bounds (role specific, env driven)
	MinCertLength int
	MaxCertLength int

	// QR payload encryption
	EncryptionKey string // secret for AES payload encryption in QR URLs
	VerifyBaseURL string // base URL embedded in QR codes

	// Working area for uploads / extraction
	UploadsDir string

	// Collaborators
	BucketName       string // S3 bucket for bulk result backups
	SendinblueAPIKey string
	MailFrom         string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	retryDelay := viper.GetInt("TIME_DELAY")
	if retryDelay <= 0 {
		retryDelay = 2000 // milliseconds
	}

	minLen := viper.GetInt("MIN_LENGTH")
	if minLen <= 0 {
		minLen = 12
	}
	maxLen := viper.GetInt("MAX_LENGTH")
	if maxLen <= 0 {
		maxLen = 20
	}

	uploads := viper.GetString("UPLOADS_DIR")
	if uploads == "" {
		uploads = "./uploads"
	}

	network := viper.GetString("NETWORK")
	if network == "" {
		network = "polygonscan.com"
	}

	return &Config{
		Env:              env,
		Port:             port,
		DatabaseURL:      viper.GetString("DATABASE_URL"),
		RedisURL:         viper.GetString("REDIS_URL"),
		RPCEndpoint:      viper.GetString("RPC_ENDPOINT"),
		ContractAddress:  viper.GetString("CONTRACT_ADDRESS"),
		Network:          network,
		IssuerRole:       viper.GetString("ISSUER_ROLE"),
		AccountAddress:   viper.GetString("ACCOUNT_ADDRESS"),
		RetryDelay:       time.Duration(retryDelay) * time.Millisecond,
		MinCertLength:    minLen,
		MaxCertLength:    maxLen,
		EncryptionKey:    viper.GetString("ENCRYPTION_KEY"),
		VerifyBaseURL:    viper.GetString("VERIFY_BASE_URL"),
		UploadsDir:       uploads,
		BucketName:       viper.GetString("BUCKET_NAME"),
		SendinblueAPIKey: viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:         viper.GetString("MAIL_FROM"),
	}, nil
}
