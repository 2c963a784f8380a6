//go:build integration

package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/gridsight/thermalwatch/internal/datastore"
	"github.com/gridsight/thermalwatch/internal/datastore/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
)

func TestAnnotationRepository_MySQLReplace(t *testing.T) {
	ctx := t.Context()

	ctr, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("thermalwatch"),
		tcmysql.WithUsername("thermalwatch"),
		tcmysql.WithPassword("thermalwatch"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	m, err := datastore.NewMySQLManager(datastore.ServerConfig{
		Host:     host,
		Port:     port.Port(),
		Username: "thermalwatch",
		Password: "thermalwatch",
		Database: "thermalwatch",
	})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Close() })

	repo := NewAnnotationRepository(m.DB())
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Replace(ctx, "INSP-001", annotationRows("INSP-001", now, "a", "b", "c")))

	bad := annotationRows("INSP-001", now, "x", "y")
	bad[1].ID = bad[0].ID
	require.Error(t, repo.Replace(ctx, "INSP-001", bad))

	got, err := repo.FindByInspection(ctx, "INSP-001")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Label)

	longID := strings.Repeat("i", entities.MaxIDLength)
	rows := annotationRows(longID, now, strings.Repeat("l", 500))
	rows[0].ID = "long-inspection-row"
	rows[0].UserID = strings.Repeat("u", entities.MaxIDLength)
	require.NoError(t, repo.Replace(ctx, longID, rows), "strict mode accepts full-width columns")

	got, err = repo.FindByInspection(ctx, longID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0].Label, 500)
}
