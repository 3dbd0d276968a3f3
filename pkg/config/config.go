package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const defaultEnvFile = ".env"

var (
	envFilePath string
	parseOnce   sync.Once

	loadedMu sync.Mutex
	loaded   = map[string]bool{}
)

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New binds the prefixed environment into T. The file given by -env, or a
// .env in the working directory, is exported first; variables already set in
// the process environment win over the file.
func New[T any](prefix string) (*T, error) {
	path := EnvFile()
	required := path != ""
	if !required {
		path = defaultEnvFile
	}
	return NewFromFile[T](path, prefix, required)
}

// NewFromFile is New with an explicit env file. A missing file is an error
// only when required is set.
func NewFromFile[T any](path, prefix string, required bool) (*T, error) {
	if path != "" {
		if err := exportOnce(path, required); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("process %s config: %w", strings.ToUpper(prefix), err)
	}
	return &conf, nil
}

// EnvFile returns the -env flag value, registering and parsing the flag set on
// first use. Callers that declare their own flags must do so before the first
// config is loaded.
func EnvFile() string {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	return strings.TrimSpace(envFilePath)
}

func exportOnce(path string, required bool) error {
	loadedMu.Lock()
	defer loadedMu.Unlock()
	if loaded[path] {
		return nil
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return fmt.Errorf("%s is a directory", path)
	case errors.Is(err, os.ErrNotExist) && !required:
		loaded[path] = true
		return nil
	case err != nil:
		return err
	}

	if err := exportEnvironment(path); err != nil {
		return err
	}
	loaded[path] = true
	return nil
}

func exportEnvironment(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}
