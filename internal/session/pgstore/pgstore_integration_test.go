// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

//go:build integration

package pgstore_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session"
	"github.com/JosephNgugi254/Nagolie-project-sub001/internal/session/pgstore"
	"github.com/JosephNgugi254/Nagolie-project-sub001/pkg/errutil"
)

var _ = Describe("Postgres session backend", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("nagolie_test"),
			postgres.WithUsername("nagolie"),
			postgres.WithPassword("nagolie"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if container != nil {
			Expect(container.Terminate(ctx)).To(Succeed())
		}
	})

	It("reports a missing schema before migration", func() {
		b, err := pgstore.Open(ctx, connStr, "")
		Expect(err).NotTo(HaveOccurred())
		defer b.Close()

		_, err = b.Get(ctx, session.KeyToken)
		Expect(err).To(HaveOccurred())
		code, _ := errutil.Code(err)
		Expect(code).To(Equal("SESSION_SCHEMA_MISSING"))
	})

	It("migrates up and reports no pending versions", func() {
		m, err := pgstore.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		Expect(m.Up()).To(Succeed())
		version, dirty, err := m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(dirty).To(BeFalse())
		Expect(version).To(Equal(uint(2)))

		pending, err := m.Pending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())
	})

	It("round-trips a session and keeps namespaces apart", func() {
		kioskA, err := pgstore.Open(ctx, connStr, "kiosk-a")
		Expect(err).NotTo(HaveOccurred())
		defer kioskA.Close()
		kioskB, err := pgstore.Open(ctx, connStr, "kiosk-b")
		Expect(err).NotTo(HaveOccurred())
		defer kioskB.Close()

		storeA, err := session.NewStore(kioskA)
		Expect(err).NotTo(HaveOccurred())
		storeB, err := session.NewStore(kioskB)
		Expect(err).NotTo(HaveOccurred())

		want, err := session.New("inv-9", session.RoleInvestor, "tok-9", session.Profile{Name: "Achieng"})
		Expect(err).NotTo(HaveOccurred())
		Expect(storeA.Save(ctx, want)).To(Succeed())

		got, err := storeA.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(want))

		other, err := storeB.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(other).To(BeNil())

		Expect(storeA.Clear(ctx)).To(Succeed())
		got, err = storeA.Load(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())
	})
})
