package issuers

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"certchain-backend/internal/chain"
	"certchain-backend/internal/config"
	"certchain-backend/internal/database"
	"certchain-backend/internal/models"
	"certchain-backend/internal/pkg/codes"
)

type stubGateway struct {
	hasRole     bool
	grantCalls  int
	revokeCalls int
	grantErr    error
}

func (g *stubGateway) Paused(context.Context) (bool, error) { return false, nil }
func (g *stubGateway) HasRole(context.Context, string, string) (bool, error) {
	return g.hasRole, nil
}
func (g *stubGateway) GrantRole(context.Context, string, string) (chain.TxResult, error) {
	g.grantCalls++
	if g.grantErr != nil {
		return chain.TxResult{}, g.grantErr
	}
	return chain.TxResult{Hash: "0xgrant"}, nil
}
func (g *stubGateway) RevokeRole(context.Context, string, string) (chain.TxResult, error) {
	g.revokeCalls++
	return chain.TxResult{Hash: "0xrevoke"}, nil
}
func (g *stubGateway) IssueCertificate(context.Context, string, string) (chain.TxResult, error) {
	return chain.TxResult{}, nil
}
func (g *stubGateway) IssueBatchOfCertificates(context.Context, string) (chain.TxResult, error) {
	return chain.TxResult{}, nil
}
func (g *stubGateway) VerifyCertificateByID(context.Context, string) (bool, error) {
	return false, nil
}
func (g *stubGateway) VerifyCertificateInBatch(context.Context, int, string, []string) (bool, error) {
	return false, nil
}
func (g *stubGateway) RootLength(context.Context) (int, error) { return 0, nil }

func testService(t *testing.T, gw *stubGateway) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	return &Service{
		DB:      db,
		Gateway: gw,
		Cfg:     &config.Config{IssuerRole: "0xrolehash"},
	}
}

func seedIssuer(t *testing.T, db *gorm.DB, status int, approved bool) models.Issuer {
	t.Helper()
	issuer := models.Issuer{
		Name:     "Acme Institute",
		Email:    "issuer@acme.test",
		IssuerID: "0x1111111111111111111111111111111111111111",
		Status:   status,
		Approved: approved,
	}
	require.NoError(t, db.Create(&issuer).Error)
	return issuer
}

func TestValidateApprove(t *testing.T) {
	gw := &stubGateway{hasRole: false}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB, 0, false)

	res, aerr := svc.Validate(context.Background(), "issuer@acme.test", models.IssuerApproved)
	require.Nil(t, aerr)
	assert.Equal(t, models.IssuerApproved, res.Status)
	assert.Equal(t, "0xgrant", res.TransactionHash)
	assert.Equal(t, 1, gw.grantCalls)

	var issuer models.Issuer
	require.NoError(t, svc.DB.Where("email = ?", "issuer@acme.test").First(&issuer).Error)
	assert.True(t, issuer.Approved)
	assert.Equal(t, models.IssuerApproved, issuer.Status)
}

func TestValidateApproveSkipsGrantWhenRoleHeld(t *testing.T) {
	gw := &stubGateway{hasRole: true}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB, 0, false)

	res, aerr := svc.Validate(context.Background(), "issuer@acme.test", models.IssuerApproved)
	require.Nil(t, aerr)
	assert.Zero(t, gw.grantCalls)
	assert.Empty(t, res.TransactionHash)
}

func TestValidateApproveAlreadyApproved(t *testing.T) {
	gw := &stubGateway{}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB, models.IssuerApproved, true)

	_, aerr := svc.Validate(context.Background(), "issuer@acme.test", models.IssuerApproved)
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgExistedVerified, aerr.Message)
	assert.Zero(t, gw.grantCalls)
}

func TestValidateReject(t *testing.T) {
	gw := &stubGateway{hasRole: true}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB, models.IssuerApproved, true)

	res, aerr := svc.Validate(context.Background(), "issuer@acme.test", models.IssuerRejected)
	require.Nil(t, aerr)
	assert.Equal(t, models.IssuerRejected, res.Status)
	assert.Equal(t, "0xrevoke", res.TransactionHash)
	assert.Equal(t, 1, gw.revokeCalls)

	var issuer models.Issuer
	require.NoError(t, svc.DB.Where("email = ?", "issuer@acme.test").First(&issuer).Error)
	assert.False(t, issuer.Approved)
	require.NotNil(t, issuer.RejectedDate)
}

func TestValidateRejectAlreadyRejected(t *testing.T) {
	gw := &stubGateway{}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB, models.IssuerRejected, false)

	_, aerr := svc.Validate(context.Background(), "issuer@acme.test", models.IssuerRejected)
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgRejectedAlready, aerr.Message)
	assert.Zero(t, gw.revokeCalls)
}

func TestValidateBadAddress(t *testing.T) {
	gw := &stubGateway{}
	svc := testService(t, gw)
	issuer := seedIssuer(t, svc.DB, 0, false)
	require.NoError(t, svc.DB.Model(&issuer).Update("issuer_id", "not-an-address").Error)

	_, aerr := svc.Validate(context.Background(), "issuer@acme.test", models.IssuerApproved)
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgInvalidEthereum, aerr.Message)
}

func TestValidateBadStatusAndUnknownIssuer(t *testing.T) {
	svc := testService(t, &stubGateway{})

	_, aerr := svc.Validate(context.Background(), "issuer@acme.test", 9)
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgProvideValidStatus, aerr.Message)

	_, aerr = svc.Validate(context.Background(), "missing@acme.test", models.IssuerApproved)
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgUserNotFound, aerr.Message)
}
