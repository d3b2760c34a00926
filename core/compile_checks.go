package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Signer          = BotTokenSigner{}
	_ MetricsRecorder = NopMetricsRecorder{}
	_ OptionsResolver = GoOptionsResolver{}
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ RawConfigLoader = StaticConfigLoader{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
