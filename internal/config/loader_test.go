package config

import "testing"

func requiredCfg() ServiceConfig {
	cfg := *DefaultServiceConfig()
	cfg.Pubsub.ProjectID = "proj"
	cfg.Pubsub.TopicName = "topic"
	cfg.Pubsub.SubscriptionName = "sub"
	cfg.Pubsub.ServiceEndpoint = "https://pubsub.example.com"
	cfg.Storage.ServiceEndpoint = "https://storage.example.com"
	return cfg
}

func TestValidate_DefaultsSatisfyRequiredFields(t *testing.T) {
	cfg := requiredCfg()
	if err := cfg.validate(); err != nil {
		t.Errorf("expected a fully-populated config to validate, got %v", err)
	}
}

func TestValidate_ManagerDomainOptional(t *testing.T) {
	cfg := requiredCfg()
	cfg.ManagerDomain = ""
	if err := cfg.validate(); err != nil {
		t.Errorf("expected empty manager_email_domain to be valid (unrestricted), got %v", err)
	}
}

func TestValidate_DatabaseParamsDefaulted(t *testing.T) {
	cfg := requiredCfg()
	if cfg.Database.Params == "" {
		t.Fatal("expected DefaultServiceConfig to populate database.params")
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("expected default database.params to be valid, got %v", err)
	}
}

func TestValidate_MissingPubsubProjectID(t *testing.T) {
	cfg := requiredCfg()
	cfg.Pubsub.ProjectID = ""
	if err := cfg.validate(); err == nil {
		t.Error("expected missing pubsub project id to fail validation")
	}
}

func TestValidate_PoolBounds(t *testing.T) {
	cfg := requiredCfg()
	cfg.Database.MinIdle = 0
	if err := cfg.validate(); err == nil {
		t.Error("expected min_idle < 1 to fail validation")
	}

	cfg = requiredCfg()
	cfg.Database.MaxSize = cfg.Database.MinIdle - 1
	if err := cfg.validate(); err == nil {
		t.Error("expected max_size < min_idle to fail validation")
	}
}
