package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

// settingsDocument is the YAML shape of SETTINGS_FILE. Only keys present in
// the document override the environment.
type settingsDocument struct {
	Leopards struct {
		Enabled           *bool   `yaml:"enabled"`
		Environment       *string `yaml:"environment"`
		BaseURL           *string `yaml:"base_url"`
		APIKey            *string `yaml:"api_key"`
		APIPasswordSealed *string `yaml:"api_password_sealed"`
		AgeIdentityFile   *string `yaml:"age_identity_file"`

		DefaultOriginCity  *string `yaml:"default_origin_city"`
		DefaultPaymentMode *string `yaml:"default_payment_mode"`
		DefaultPieces      *int    `yaml:"default_pieces"`
		DefaultServiceType *string `yaml:"default_service_type"`
		DefaultProductType *string `yaml:"default_product_type"`
		ShipmentMode       *string `yaml:"shipment_mode"`

		ShipperName    *string `yaml:"shipper_name"`
		ShipperPhone   *string `yaml:"shipper_phone"`
		ShipperAddress *string `yaml:"shipper_address"`
	} `yaml:"leopards"`
}

// ApplySettingsFile overlays the Leopards settings from a YAML document.
func (c *Config) ApplySettingsFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read settings file: %w", err)
	}
	return c.ApplySettings(data)
}

// ApplySettings overlays the Leopards settings from YAML bytes.
func (c *Config) ApplySettings(data []byte) error {
	var doc settingsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	l := doc.Leopards
	s := &c.Leopards
	setBool(&s.Enabled, l.Enabled)
	setString(&s.Environment, l.Environment)
	setString(&s.BaseURL, l.BaseURL)
	setString(&s.APIKey, l.APIKey)
	setString(&s.APIPasswordSealed, l.APIPasswordSealed)
	setString(&s.AgeIdentityFile, l.AgeIdentityFile)
	setString(&s.DefaultOriginCity, l.DefaultOriginCity)
	setString(&s.DefaultPaymentMode, l.DefaultPaymentMode)
	setString(&s.DefaultServiceType, l.DefaultServiceType)
	setString(&s.DefaultProductType, l.DefaultProductType)
	setString(&s.ShipmentMode, l.ShipmentMode)
	setString(&s.ShipperName, l.ShipperName)
	setString(&s.ShipperPhone, l.ShipperPhone)
	setString(&s.ShipperAddress, l.ShipperAddress)
	if l.DefaultPieces != nil {
		s.DefaultPieces = *l.DefaultPieces
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
