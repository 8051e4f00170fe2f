/*
Copyright 2025 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package planner

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/druidplan/druidplan/go/sql/plancontext"
	"github.com/druidplan/druidplan/go/sqlerrors"
)

// Configuration sections read by LoadConfig.
const (
	PlannerSection = "planner"
	ServerSection  = "server"
)

// LoadConfig reads the planner and server sections of v over the
// defaults and checks the result.
func LoadConfig(v *viper.Viper) (plancontext.Config, plancontext.ServerConfig, error) {
	cfg := plancontext.DefaultConfig()
	server := plancontext.DefaultServerConfig()

	hook := viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())
	if v.IsSet(PlannerSection) {
		if err := v.UnmarshalKey(PlannerSection, &cfg, hook); err != nil {
			return cfg, server, sqlerrors.Errorf(sqlerrors.Configuration, "invalid %s section: %v", PlannerSection, err)
		}
	}
	if v.IsSet(ServerSection) {
		if err := v.UnmarshalKey(ServerSection, &server, hook); err != nil {
			return cfg, server, sqlerrors.Errorf(sqlerrors.Configuration, "invalid %s section: %v", ServerSection, err)
		}
	}

	switch {
	case cfg.MaxTopNLimit <= 0:
		return cfg, server, sqlerrors.Errorf(sqlerrors.Configuration, "max_topn_limit must be positive, got %d", cfg.MaxTopNLimit)
	case cfg.MaxApplications <= 0:
		return cfg, server, sqlerrors.Errorf(sqlerrors.Configuration, "max_rule_applications must be positive, got %d", cfg.MaxApplications)
	case server.DefaultQueryTimeout < 0:
		return cfg, server, sqlerrors.Errorf(sqlerrors.Configuration, "default_query_timeout must not be negative, got %v", server.DefaultQueryTimeout)
	}
	if _, err := time.LoadLocation(cfg.SQLTimeZone); err != nil {
		return cfg, server, sqlerrors.Errorf(sqlerrors.Configuration, "invalid sql_time_zone %q: %v", cfg.SQLTimeZone, err)
	}
	return cfg, server, nil
}
