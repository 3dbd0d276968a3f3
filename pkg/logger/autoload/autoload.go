// Package autoload initializes the global logger from LOG_* variables on
// import. It reads the process environment only; .env files are applied later
// when the caller loads its config and calls logx.Init again.
package autoload

import (
	"github.com/kelseyhightower/envconfig"
	logx "github.com/tanpawarit/Chative-Support-Desk/pkg/logger"
)

func init() {
	var conf logx.Config
	if err := envconfig.Process("LOG", &conf); err != nil {
		logx.Init()
		return
	}
	logx.Init(conf)
}
