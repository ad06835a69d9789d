package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Watch observes path+main.toml and calls fn with the freshly read
// configuration after every write. Read errors are passed to fn as well,
// together with the zero Config.
func Watch(path string, fn func(Config, error)) error {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path + FileName)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return errors.Wrap(err, "failed to watch main config file")
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		fn(ReadConfig(path))
	})
	v.WatchConfig()

	return nil
}
