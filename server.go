package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"log/syslog"
	"net/http"
	"os"
	"path"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/recast-tv/recast-server/api"
	"github.com/recast-tv/recast-server/database"
	"github.com/recast-tv/recast-server/imageresize"
	"github.com/recast-tv/recast-server/muxnormalizer"
	"github.com/recast-tv/recast-server/recordings"
)

func main() {
	pflag.String("config", "recast-server.yaml", "Path of configuration file.")
	pflag.String("logfile", "", "Path of logfile. Use 'syslog' for syslog, 'stdout' "+
		"for standard output, or 'none' to disable logging.")
	pflag.Int("port", 8080, "Listener port.")
	pflag.Parse()
	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		log.Fatalf("error binding flags: %v", err)
	}

	viper.SetDefault("port", 8080)
	viper.SetDefault("dbdir", ".")
	viper.SetDefault("cachedir", "")
	viper.SetDefault("baseurl", "")
	viper.SetDefault("logfile", "stdout")
	viper.SetDefault("imagequality.thumbnail", 90)
	viper.SetDefault("playback.liveedgebufferms", 0)
	viper.SetDefault("playback.nexttolerancems", 0)
	viper.SetDefault("playback.prevtolerancems", 0)
	viper.SetDefault("db.syncinterval", 10*time.Second)

	viper.SetConfigFile(viper.GetString("config"))
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			log.Fatalf("error reading config file: %v", err)
		}
		log.Printf("No config file, using defaults")
	}

	setLogOutput(viper.GetString("logfile"))

	log.Printf("Opening database")
	repo, err := database.New(&database.Options{
		Filename:     path.Join(viper.GetString("dbdir"), "recast-items.db"),
		SyncInterval: viper.GetDuration("db.syncinterval"),
	})
	if err != nil {
		log.Fatalf("database.New: %s", err)
	}
	go repo.BackgroundJobs()

	library, err := recordings.New(&recordings.Options{
		Repo: repo,
	})
	if err != nil {
		log.Fatalf("recordings.New: %s", err)
	}

	resizer := imageresize.New(imageresize.Options{
		Cachedir: viper.GetString("cachedir"),
	})

	port := viper.GetInt("port")
	baseURL := viper.GetString("baseurl")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", port)
	}

	r := mux.NewRouter()

	a := api.New(&api.Options{
		Library:               library,
		Repo:                  repo,
		Imageresizer:          resizer,
		BaseURL:               baseURL,
		ImageQualityThumbnail: viper.GetInt("imagequality.thumbnail"),
		LiveEdgeBufferMs:      viper.GetInt64("playback.liveedgebufferms"),
		NextToleranceMs:       viper.GetInt64("playback.nexttolerancems"),
		PrevToleranceMs:       viper.GetInt64("playback.prevtolerancems"),
	})
	a.RegisterHandlers(r)

	normalizer, err := muxnormalizer.New(r)
	if err != nil {
		log.Fatalf("muxnormalizer.New: %s", err)
	}
	server := AccessLog(normalizer.Middleware(r))

	log.Printf("Initializing recording library..")
	ctx := context.Background()
	if err := library.Init(ctx); err != nil {
		log.Fatalf("error loading recording library: %s", err)
	}
	go library.Background(ctx)

	addr := fmt.Sprintf(":%d", port)

	tlsCert := viper.GetString("tls.cert")
	tlsKey := viper.GetString("tls.key")
	if tlsCert != "" && tlsKey != "" {
		kpr, err := NewKeypairReloader(tlsCert, tlsKey)
		if err != nil {
			log.Fatalf("error loading keypair: %v", err)
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: server,
			TLSConfig: &tls.Config{
				MinVersion:     tls.VersionTLS13,
				GetCertificate: kpr.GetCertificateFunc(),
			},
		}
		log.Printf("Serving HTTPS on %s", addr)
		log.Fatal(srv.ListenAndServeTLS("", ""))
	} else {
		log.Printf("Serving HTTP on %s", addr)
		log.Fatal(http.ListenAndServe(addr, server))
	}
}

func setLogOutput(logfile string) {
	switch logfile {
	case "syslog":
		logw, err := syslog.New(syslog.LOG_NOTICE, "recast")
		if err != nil {
			log.Fatalf("error opening syslog: %v", err)
		}
		log.SetOutput(logw)
	case "none":
		log.SetOutput(io.Discard)
	case "", "stdout":
	default:
		f, err := os.OpenFile(logfile,
			os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening file: %v", err)
		}
		log.SetOutput(f)
	}
}

type keypairReloader struct {
	certMu   sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
}

// NewKeypairReloader creates a new keypair reloader that will reload the TLS certificate
// and key from the specified paths every 15 seconds. If the certificate cannot be loaded,
// it will log an error and keep the old certificate in use.
func NewKeypairReloader(certPath, keyPath string) (*keypairReloader, error) {
	result := &keypairReloader{
		certPath: certPath,
		keyPath:  keyPath,
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	result.cert = &cert

	go func() {
		for {
			time.Sleep(15 * time.Second)
			if err := result.maybeReload(); err != nil {
				log.Printf("Keeping old TLS certificate because the new one could not be loaded: %v", err)
			}
		}
	}()
	return result, nil
}

func (kpr *keypairReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(clientHello *tls.ClientHelloInfo) (*tls.Certificate, error) {
		kpr.certMu.RLock()
		defer kpr.certMu.RUnlock()
		return kpr.cert, nil
	}
}

func (kpr *keypairReloader) maybeReload() error {
	newCert, err := tls.LoadX509KeyPair(kpr.certPath, kpr.keyPath)
	if err != nil {
		return err
	}
	kpr.certMu.Lock()
	defer kpr.certMu.Unlock()
	kpr.cert = &newCert
	return nil
}
