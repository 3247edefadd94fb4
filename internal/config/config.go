// Package config reads process settings from the environment, after
// loading an optional .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
)

const (
	StoreFile  = "file"
	StoreMongo = "mongo"
)

type Config struct {
	Addr            string
	Dir             string
	Store           string
	MongoURI        string
	MongoDatabase   string
	CallbackTimeout time.Duration
	WriteTimeout    time.Duration
}

func Default() Config {
	return Config{
		Addr:            "127.0.0.1:8080",
		Dir:             "./documents",
		Store:           StoreFile,
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   "sharepad",
		CallbackTimeout: 5 * time.Second,
		WriteTimeout:    10 * time.Second,
	}
}

// Load reads the given env files (".env" when none are given) and then the
// SHAREPAD_* variables. Missing env files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, fmt.Errorf("%s: %w", f, err)
		}
		glog.V(1).Infof("[config]loaded %s\n", f)
	}

	c := Default()
	str(&c.Addr, "SHAREPAD_ADDR")
	str(&c.Dir, "SHAREPAD_DIR")
	str(&c.Store, "SHAREPAD_STORE")
	str(&c.MongoURI, "SHAREPAD_MONGO_URI")
	str(&c.MongoDatabase, "SHAREPAD_MONGO_DATABASE")
	if err := duration(&c.CallbackTimeout, "SHAREPAD_CALLBACK_TIMEOUT"); err != nil {
		return Config{}, err
	}
	if err := duration(&c.WriteTimeout, "SHAREPAD_WRITE_TIMEOUT"); err != nil {
		return Config{}, err
	}

	if c.Store != StoreFile && c.Store != StoreMongo {
		return Config{}, fmt.Errorf("SHAREPAD_STORE: unknown store %q", c.Store)
	}
	return c, nil
}

func str(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func duration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
