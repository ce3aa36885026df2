package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadsync-cli/pkg/surfe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server for inbound conversation events",
	Long:  "Listens for conversation webhooks, looks the contact up by email, and flags C-level people on high-value topics as priority leads.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		enricher, err := initSurfe()
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newRouter(enricher),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("webhook server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
		return g.Wait()
	},
}

// conversationEvent is the inbound webhook payload.
type conversationEvent struct {
	Email string `json:"email"`
	Topic string `json:"topic"`
}

type priorityResponse struct {
	Priority  bool   `json:"priority"`
	Reason    string `json:"reason,omitempty"`
	Seniority string `json:"seniority,omitempty"`
}

func newRouter(enricher surfe.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "X-Webhook-Secret"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	r.Post("/webhook/conversation", handleConversation(enricher))

	return r
}

func handleConversation(enricher surfe.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(cfg.Server.WebhookSecret)) != 1 {
			http.Error(w, "invalid webhook secret", http.StatusUnauthorized)
			return
		}

		var ev conversationEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}
		if ev.Email == "" {
			http.Error(w, "missing email", http.StatusBadRequest)
			return
		}

		resp := priorityResponse{}
		if highValueTopic(ev.Topic) {
			res, err := enricher.SearchByEmail(r.Context(), ev.Email)
			if err != nil {
				zap.L().Warn("person search failed", zap.String("email", ev.Email), zap.Error(err))
				http.Error(w, "person search failed", http.StatusBadGateway)
				return
			}
			if sen, ok := cLevel(&res.Person); ok {
				resp.Priority = true
				resp.Reason = "c-level on high-value topic"
				resp.Seniority = sen
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			zap.L().Warn("response write failed", zap.Error(err))
		}
	}
}

func highValueTopic(topic string) bool {
	for _, t := range cfg.Zoom.HighValueTopics {
		if strings.EqualFold(t, topic) {
			return true
		}
	}
	return false
}

// cLevel reports whether the person holds a C-level seniority or sits in the
// C Suite department, and returns the matched seniority when present.
func cLevel(p *surfe.EnrichedPerson) (string, bool) {
	for _, s := range p.Seniorities {
		if strings.EqualFold(s, "C-Level") || strings.EqualFold(s, "Founder") {
			return s, true
		}
	}
	if slices.ContainsFunc(p.Departments, func(d string) bool {
		return strings.EqualFold(d, "C Suite")
	}) {
		return "C Suite", true
	}
	return "", false
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
