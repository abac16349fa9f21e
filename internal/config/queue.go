package config

import (
	"fmt"
)

type QueueConfig struct {
	Url                    string `mapstructure:"url"`
	QueueUser              string `mapstructure:"queue-user"`
	QueuePassword          string `mapstructure:"queue-password"`
	QueueProcessingTimeout int    `mapstructure:"queue-processing-timeout"`
	MsgMaxRetryAttempts    int32  `mapstructure:"msg-max-retry-attempts"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.Url == "" {
		return fmt.Errorf("missing queue url")
	}

	if cfg.QueueUser == "" {
		return fmt.Errorf("missing queue user")
	}

	if cfg.QueuePassword == "" {
		return fmt.Errorf("missing queue password")
	}

	if cfg.QueueProcessingTimeout <= 0 {
		return fmt.Errorf("queue processing timeout must be a positive integer")
	}

	if cfg.MsgMaxRetryAttempts <= 0 {
		return fmt.Errorf("msg max retry attempts must be a positive integer")
	}

	return nil
}
