package config

import (
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrMissingSecret is returned by Load next to an otherwise complete Config.
// Commands that never issue tokens may ignore it.
var ErrMissingSecret = errors.New("missing parameter --token-secret")

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	Debug       bool

	SMTP    SMTPConfig
	Reports ReportsConfig
	NatsURL string
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	DefaultTo string
}

type ReportsConfig struct {
	SweepInterval time.Duration
}

// BindFlags registers every configuration flag on fs. Values may also come
// from FORMIFY_* environment variables or a formify.yaml file, see Load.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("host", "0.0.0.0", "listen host name")
	fs.Uint("port", 80, "listen port number")
	fs.String("db-url", "formify.sqlite", "path to SQLite3 DB file")
	fs.String("token-secret", "", "secret key for token encryption and decryption")
	fs.Uint("token-ttl", 120, "token TTL in seconds")
	fs.Bool("debug", false, "log at DEBUG level")

	fs.String("smtp-host", "", "SMTP server host, report delivery is disabled when empty")
	fs.Int("smtp-port", 25, "SMTP server port")
	fs.String("smtp-username", "", "SMTP username")
	fs.String("smtp-password", "", "SMTP password")
	fs.String("smtp-from", "noreply@formify.local", "sender address for report emails")
	fs.String("smtp-default-to", "", "fallback recipient when the report owner has no email")

	fs.Duration("report-sweep-interval", time.Minute, "how often scheduled reports are checked, 0 disables the sweep")
	fs.String("nats-url", "", "NATS server URL used to fan out report updates between instances")
}

func Load(fs *pflag.FlagSet) (cfg Config, err error) {
	v := viper.New()
	v.SetEnvPrefix("FORMIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err = v.BindPFlags(fs); err != nil {
		return
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("formify")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (cfg Config, err error) {
	cfg.Addr = net.JoinHostPort(v.GetString("host"), strconv.Itoa(v.GetInt("port")))
	cfg.DBUrl = v.GetString("db-url")
	cfg.TokenSecret = v.GetString("token-secret")
	cfg.TokenTTL = time.Duration(v.GetInt("token-ttl")) * time.Second
	cfg.Debug = v.GetBool("debug")

	cfg.SMTP = SMTPConfig{
		Host:      v.GetString("smtp-host"),
		Port:      v.GetInt("smtp-port"),
		Username:  v.GetString("smtp-username"),
		Password:  v.GetString("smtp-password"),
		From:      v.GetString("smtp-from"),
		DefaultTo: v.GetString("smtp-default-to"),
	}
	cfg.Reports.SweepInterval = v.GetDuration("report-sweep-interval")
	cfg.NatsURL = v.GetString("nats-url")

	if cfg.TokenSecret == "" {
		err = ErrMissingSecret
	}
	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
