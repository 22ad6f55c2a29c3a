package options

import (
	"errors"
	"os"

	"github.com/akamensky/argparse"
)

type Options struct {
	LogFile   *string
	CertFile  *string
	KeyFile   *string
	Mode      *string
	Port      *int
	StaticDir *string
	parser    *argparse.Parser
}

func NewOptions() (*Options, error) {
	option := &Options{}

	parser := argparse.NewParser("sensor-server", "Argument parser for the sensor monitor server")
	option.LogFile = parser.String("l", "log-file", &argparse.Options{
		Help:    "log-file name",
		Default: "/var/log/sensor-server.log",
	})
	option.CertFile = parser.String("", "tls-cert-file", &argparse.Options{
		Help: "CertFile containing the default x509 Certificate for HTTPS. (CA cert)",
	})
	option.KeyFile = parser.String("", "tls-private-key-file", &argparse.Options{
		Help: "Private key file containing the default x509 private key matching --tls-cert-file",
	})
	option.Port = parser.Int("p", "port", &argparse.Options{
		Help:    "The port used by the server",
		Default: 3000,
	})
	option.Mode = parser.Selector("m", "mode", []string{"release", "development", "debug"}, &argparse.Options{
		Help:    "Choose release/development mode (default debug mode)",
		Default: "debug",
	})
	option.StaticDir = parser.String("s", "static-dir", &argparse.Options{
		Help:    "Directory holding the built dashboard bundle; empty disables static serving",
		Default: "",
	})

	option.parser = parser

	if err := parser.Parse(os.Args); err != nil {
		return option, err
	}

	if err := option.Validate(); err != nil {
		return option, err
	}

	return option, nil
}

func (o *Options) Validate() error {
	if (*o.CertFile == "" && *o.KeyFile != "") || (*o.CertFile != "" && *o.KeyFile == "") {
		return errors.New("certificate/private key both must be present or neither must be present")
	}

	if *o.StaticDir != "" {
		if _, err := os.Stat(*o.StaticDir); err != nil {
			return errors.New("static-dir does not exist")
		}
	}
	return nil
}

func (o *Options) Usage(err error) string {
	return o.parser.Usage(err)
}
