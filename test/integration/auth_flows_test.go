// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/auth"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/identity/identitytest"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/mailer"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/mailer/mailertest"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session/boltstore"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session/redisstore"
)

// testEnv wires the auth components to fake services and one session backend.
type testEnv struct {
	ctx      context.Context
	cancel   context.CancelFunc
	fake     *identitytest.Server
	mail     *mailertest.Server
	client   *identity.Client
	emailjs  *mailer.EmailJS
	logger   *slog.Logger
	openBack func() session.Backend
	backends []session.Backend
}

type backendFactory func() (open func() session.Backend, cleanup func())

func boltBackend() (func() session.Backend, func()) {
	file := filepath.Join(GinkgoT().TempDir(), "session.db")
	return func() session.Backend {
		b, err := boltstore.Open(file, boltstore.DefaultBucket)
		Expect(err).NotTo(HaveOccurred())
		return b
	}, func() {}
}

func redisBackend() (func() session.Backend, func()) {
	mr, err := miniredis.Run()
	Expect(err).NotTo(HaveOccurred())
	return func() session.Backend {
		b, err := redisstore.Dial(context.Background(), "redis://"+mr.Addr(), "it:")
		Expect(err).NotTo(HaveOccurred())
		return b
	}, mr.Close
}

func setupTestEnv(newBackend backendFactory) *testEnv {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	env := &testEnv{
		ctx:    ctx,
		cancel: cancel,
		fake:   identitytest.New(),
		mail:   mailertest.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	idSrv := httptest.NewServer(env.fake.Handler())
	DeferCleanup(idSrv.Close)
	mailSrv := httptest.NewServer(env.mail)
	DeferCleanup(mailSrv.Close)

	var err error
	env.client, err = identity.New(idSrv.URL, identity.WithRetries(1, time.Millisecond), identity.WithLogger(env.logger))
	Expect(err).NotTo(HaveOccurred())
	env.emailjs, err = mailer.NewEmailJS(mailertest.Config(mailSrv.URL), mailer.WithRetries(0, time.Millisecond))
	Expect(err).NotTo(HaveOccurred())

	open, cleanup := newBackend()
	env.openBack = open
	DeferCleanup(func() {
		for _, b := range env.backends {
			_ = b.Close()
		}
		cleanup()
		cancel()
	})
	return env
}

// store opens a fresh backend handle, as a new process would.
func (env *testEnv) store() *session.Store {
	b := env.openBack()
	env.backends = append(env.backends, b)
	s, err := session.NewStore(b, session.WithLogger(env.logger))
	Expect(err).NotTo(HaveOccurred())
	return s
}

// release closes every open handle so bbolt's file lock is freed.
func (env *testEnv) release() {
	for _, b := range env.backends {
		Expect(b.Close()).To(Succeed())
	}
	env.backends = nil
}

func (env *testEnv) manager(s *session.Store, opts ...auth.Option) *auth.Manager {
	m, err := auth.NewManager(s, env.client, append([]auth.Option{auth.WithLogger(env.logger)}, opts...)...)
	Expect(err).NotTo(HaveOccurred())
	return m
}

var backends = []TableEntry{
	Entry("bbolt", backendFactory(boltBackend)),
	Entry("redis", backendFactory(redisBackend)),
}

var _ = Describe("Auth flows", func() {
	DescribeTable("login survives a restart and logout clears every copy",
		func(newBackend backendFactory) {
			env := setupTestEnv(newBackend)
			env.fake.AddUser("amina", "Secret1", identity.User{
				ID: "usr-1", Name: "Amina", Email: "amina@example.com", Role: "investor",
			})

			m := env.manager(env.store())
			res, err := m.Login(env.ctx, auth.Credentials{Username: "amina", Password: "Secret1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Redirect).To(Equal(auth.RedirectInvestor))
			env.release()

			restarted := env.store()
			m2 := env.manager(restarted)
			restored, err := m2.Restore(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored).NotTo(BeNil())
			Expect(restored.Token).To(Equal(res.Session.Token))
			Expect(m2.State()).To(Equal(auth.State{Phase: auth.PhaseAuthenticated, Role: session.RoleInvestor}))

			roles, err := auth.NewRoleResolver(restarted, env.logger)
			Expect(err).NotTo(HaveOccurred())
			_, err = roles.RequireRole(env.ctx, session.RoleInvestor)
			Expect(err).NotTo(HaveOccurred())
			_, err = roles.RequireRole(env.ctx, session.RoleAdmin)
			Expect(auth.KindOf(err)).To(Equal(auth.KindUnauthorized))

			Expect(m2.Logout(env.ctx)).To(Succeed())
			Expect(roles.IsAuthenticated(env.ctx)).To(BeFalse())
			tok, err := restarted.Token(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(tok).To(BeEmpty())
		},
		backends,
	)

	DescribeTable("missing role is refused unless the admin fallback is enabled",
		func(newBackend backendFactory) {
			env := setupTestEnv(newBackend)
			env.fake.AddUser("root", "Secret1", identity.User{ID: "usr-9", Name: "Root"})
			env.fake.OmitRole(true)
			s := env.store()

			_, err := env.manager(s).Login(env.ctx, auth.Credentials{Username: "root", Password: "Secret1"})
			Expect(auth.ReasonOf(err)).To(Equal(auth.ReasonRoleMissing))
			loaded, err := s.Load(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())

			res, err := env.manager(s, auth.WithRoleFallback(auth.FallbackAdmin)).
				Login(env.ctx, auth.Credentials{Username: "root", Password: "Secret1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Session.Role).To(Equal(session.RoleAdmin))
		},
		backends,
	)

	It("resets a password without revealing whether the email exists", func() {
		env := setupTestEnv(backendFactory(boltBackend))
		env.fake.AddUser("amina", "Secret1", identity.User{
			ID: "usr-1", Name: "Amina", Email: "amina@example.com", Role: "investor", InvestmentAmount: 50000,
		})
		resets, err := auth.NewResetCoordinator(env.client, env.emailjs, auth.WithLogger(env.logger))
		Expect(err).NotTo(HaveOccurred())

		unknown, err := resets.RequestReset(env.ctx, "nobody@example.com")
		Expect(err).NotTo(HaveOccurred())
		known, err := resets.RequestReset(env.ctx, "amina@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(known).To(Equal(unknown))

		sent := env.mail.Sent()
		Expect(sent).To(HaveLen(1))
		Expect(sent[0].TemplateID).To(Equal("tpl_reset"))
		token := path.Base(sent[0].Params[mailer.ParamResetLink])

		for range 2 {
			check, err := resets.ValidateToken(env.ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(check.DisplayName).To(Equal("Amina"))
		}
		Expect(resets.State()).To(Equal(auth.ResetAwaitingReset))

		receipt, err := resets.CompleteReset(env.ctx, auth.ResetSubmission{
			Token: token, SecurityAnswer: "50000", NewPassword: "NewPass1", ConfirmPassword: "NewPass1",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(receipt.Email).To(Equal("amina@example.com"))
		Expect(env.mail.Sent()).To(HaveLen(2))

		m := env.manager(env.store())
		_, err = m.Login(env.ctx, auth.Credentials{Username: "amina", Password: "NewPass1"})
		Expect(err).NotTo(HaveOccurred())

		_, err = resets.ValidateToken(env.ctx, token)
		Expect(auth.KindOf(err)).To(Equal(auth.KindNotFoundOrExpired))
	})

	It("reports a failed delivery distinctly and keeps the password-changed email best-effort", func() {
		env := setupTestEnv(backendFactory(boltBackend))
		env.fake.AddUser("amina", "Secret1", identity.User{
			ID: "usr-1", Email: "amina@example.com", Role: "investor", InvestmentAmount: 50000,
		})
		resets, err := auth.NewResetCoordinator(env.client, env.emailjs, auth.WithLogger(env.logger))
		Expect(err).NotTo(HaveOccurred())

		env.mail.FailWith(http.StatusBadGateway)
		_, err = resets.RequestReset(env.ctx, "amina@example.com")
		Expect(auth.KindOf(err)).To(Equal(auth.KindDeliveryFailed))

		env.mail.FailWith(0)
		_, err = resets.RequestReset(env.ctx, "amina@example.com")
		Expect(err).NotTo(HaveOccurred())
		token := path.Base(env.mail.Sent()[0].Params[mailer.ParamResetLink])

		env.mail.FailWith(http.StatusBadGateway)
		_, err = resets.CompleteReset(env.ctx, auth.ResetSubmission{
			Token: token, SecurityAnswer: "50,000", NewPassword: "NewPass1", ConfirmPassword: "NewPass1",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resets.State()).To(Equal(auth.ResetCompleted))
	})

	DescribeTable("registration adopts the new investor session",
		func(newBackend backendFactory) {
			env := setupTestEnv(newBackend)
			env.fake.AddInvitation("inv-1", "TEMP-123", identity.Investor{Name: "Otieno", InvestmentAmount: 75000})
			s := env.store()
			m := env.manager(s)
			h, err := auth.NewRegistrationHandshake(env.client, m, auth.WithLogger(env.logger))
			Expect(err).NotTo(HaveOccurred())

			form := auth.RegistrationForm{
				InvitationID: "inv-1", TemporaryPassword: "TEMP-123",
				Username: "otieno", Password: "Secret1", ConfirmPassword: "Secret1",
			}
			created, err := h.CompleteRegistration(env.ctx, form)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := s.Load(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).NotTo(BeNil())
			Expect(loaded.Token).To(Equal(created.Token))
			Expect(loaded.Role).To(Equal(session.RoleInvestor))
			Expect(loaded.Profile.DisplayName()).To(Equal("Otieno"))

			_, err = h.CompleteRegistration(env.ctx, form)
			Expect(auth.KindOf(err)).To(Equal(auth.KindNotFoundOrExpired))
			Expect(auth.ReasonOf(err)).To(Equal(identitytest.MsgInviteUsed))
		},
		backends,
	)
})
