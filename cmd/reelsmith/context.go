package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"reelsmith/internal/config"
)

type commandContext struct {
	configFlag     *string
	productionFlag *string
	jsonFlag       *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, productionFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:     configFlag,
		productionFlag: productionFlag,
		jsonFlag:       jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) productionRef() string {
	if c.productionFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.productionFlag)
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
