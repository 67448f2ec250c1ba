// Package config provides configuration management for the QPAY payment
// service. Configuration can be loaded from YAML files and overridden by
// environment variables.
package config

import (
	"fmt"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the QPAY payment service.
// Environment variables take precedence over YAML values.
type Config struct {
	IsDebug    bool  `yaml:"is_debug" env:"DEBUG" env-default:"false"`
	LogRecords int64 `yaml:"log_records" env:"LOG_RECORDS" env-default:"0"`
	Listen     struct {
		BindIP   string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
		Port     string `yaml:"port" env:"PORT" env-default:"5200"`
		TLS      bool   `yaml:"tls_enabled" env:"TLS_ENABLED" env-default:"false"`
		CertFile string `yaml:"cert_file" env:"TLS_CERT_FILE" env-default:""`
		KeyFile  string `yaml:"key_file" env:"TLS_KEY_FILE" env-default:""`
	} `yaml:"listen"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:""`
	} `yaml:"mongo"`
	Gateway Gateway `yaml:"gateway"`
}

// Gateway holds the merchant credentials and endpoints of the hosted
// payment page. CustomerID and Secret are required for signing; the
// ToolkitPassword is only needed for refunds.
type Gateway struct {
	CustomerID      string `yaml:"customer_id" env:"GATEWAY_CUSTOMER_ID" env-default:""`
	ShopID          string `yaml:"shop_id" env:"GATEWAY_SHOP_ID" env-default:""`
	Secret          string `yaml:"secret" env:"GATEWAY_SECRET" env-default:""`
	ToolkitPassword string `yaml:"toolkit_password" env:"GATEWAY_TOOLKIT_PASSWORD" env-default:""`
	PageURL         string `yaml:"page_url" env:"GATEWAY_PAGE_URL" env-default:"https://checkout.wirecard.com/page/init.php"`
	ToolkitURL      string `yaml:"toolkit_url" env:"GATEWAY_TOOLKIT_URL" env-default:"https://checkout.wirecard.com/page/toolkit.php"`
	// PublicURL is the externally reachable base URL of this service,
	// used to build the callback URLs handed to the gateway.
	PublicURL string `yaml:"public_url" env:"GATEWAY_PUBLIC_URL" env-default:""`
	// ShopURL is the base URL of the host shop, used for browser redirects
	// back to order and event pages.
	ShopURL string `yaml:"shop_url" env:"GATEWAY_SHOP_URL" env-default:""`
	// ServiceURL is the merchant's imprint page, shown on the payment page.
	ServiceURL string `yaml:"service_url" env:"GATEWAY_SERVICE_URL" env-default:""`
	// Methods lists the enabled sub-method identifiers.
	Methods []string `yaml:"methods" env:"GATEWAY_METHODS" env-separator:","`
}

var instance *Config
var once sync.Once

// GetConfig loads configuration from the specified YAML file path.
// Configuration values can be overridden by environment variables.
// This function uses a singleton pattern and only loads the config once.
func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("load config: %w; %s", err, desc)
			instance = nil
		}
	})
	return instance, err
}
