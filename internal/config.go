package internal

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/sparklens/tweetgrab/internal/acquisition"
	"github.com/sparklens/tweetgrab/internal/api"
	"github.com/sparklens/tweetgrab/internal/database"
	"github.com/sparklens/tweetgrab/internal/http/twitter"
)

// TweetgrabConfig is the struct used to contain the
// various user config supplied by file, or
// manually inside the code.
type TweetgrabConfig struct {
	Acquisition acquisition.Config      `yaml:"acquisition"`
	Twitter     twitter.Config          `yaml:"twitter" env-required:"true"`
	Database    database.DatabaseConfig `yaml:"database" env-required:"true"`
	RestConfig  api.RestConfig          `yaml:"api"`
}

// Loads a configuration file formatted in YAML in to a
// TweetgrabConfig struct ready to be passed to New
func (config *TweetgrabConfig) LoadFromFile(configPath string) error {
	err := cleanenv.ReadConfig(configPath, config)
	if err != nil {
		return fmt.Errorf("failed to load configuration for TweetgrabConfig - %v", err.Error())
	}

	return nil
}
