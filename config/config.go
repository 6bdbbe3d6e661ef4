package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	Debug       bool

	StaticDir     string
	UploadDir     string
	UploadBaseURL string
	MaxUploadSize int64

	AdminUser     string
	AdminPassword string

	OneResponsePerIP bool
	PreviewImages    int
	RateLimit        int
}

// LoadEnv reads an optional .env file into the process environment.
// Variables that are already set are left alone.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ParseFlags parses command line arguments. Every flag falls back on a
// QF_* environment variable; values given on the command line win.
func ParseFlags(args []string) (cfg Config, err error) {
	fs := flag.NewFlagSet("quick-forms", flag.ContinueOnError)

	var host string
	fs.StringVar(&host, "host", envString("QF_HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", uint(envInt("QF_PORT", 80)), "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", envString("QF_DB_URL", "qforms.sqlite"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", envString("QF_TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", uint(envInt("QF_TOKEN_TTL", 120)), "token TTL in seconds")
	fs.BoolVar(&cfg.Debug, "debug", envBool("QF_DEBUG", false), "log at DEBUG level")

	fs.StringVar(&cfg.StaticDir, "static-dir", envString("QF_STATIC_DIR", "."), "directory holding the public/ and private/ front-end bundles")
	fs.StringVar(&cfg.UploadDir, "upload-dir", envString("QF_UPLOAD_DIR", "uploads"), "directory for uploaded images")
	fs.StringVar(&cfg.UploadBaseURL, "upload-base-url", envString("QF_UPLOAD_BASE_URL", "/uploads"), "public URL prefix of the upload directory")
	var maxUploadMB uint
	fs.UintVar(&maxUploadMB, "max-upload-size", uint(envInt("QF_MAX_UPLOAD_SIZE", 5)), "maximum image size in MiB")

	fs.StringVar(&cfg.AdminUser, "admin-user", envString("QF_ADMIN_USER", ""), "create or update this admin user at startup")
	fs.StringVar(&cfg.AdminPassword, "admin-password", envString("QF_ADMIN_PASSWORD", ""), "password for -admin-user")

	fs.BoolVar(&cfg.OneResponsePerIP, "one-response-per-ip", envBool("QF_ONE_RESPONSE_PER_IP", true), "accept a single response per form from each IP")
	fs.IntVar(&cfg.PreviewImages, "preview-images", envInt("QF_PREVIEW_IMAGES", 3), "maximum number of image previews per rich text")
	fs.IntVar(&cfg.RateLimit, "rate-limit", envInt("QF_RATE_LIMIT", 30), "public requests per minute per IP (0 disables)")

	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.MaxUploadSize = int64(maxUploadMB) << 20
	cfg.UploadBaseURL = strings.TrimRight(cfg.UploadBaseURL, "/")

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.AdminUser != "" && cfg.AdminPassword == "":
		err = errors.New("missing parameter -admin-password")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
