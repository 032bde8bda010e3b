package issuance

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"certchain-backend/internal/chain"
	"certchain-backend/internal/config"
	"certchain-backend/internal/database"
	"certchain-backend/internal/models"
	"certchain-backend/internal/pkg/apperr"
	"certchain-backend/internal/pkg/codes"
	"certchain-backend/internal/pkg/encrypt"
)

type stubGateway struct {
	paused       bool
	noRole       bool
	anchored     bool
	issueErr     error
	batchErr     error
	hash         string
	rootLength   int
	issueCalls   int
	batchCalls   int
	pausedCalls  int
	hasRoleCalls int
	verifyCalls  int
}

func (g *stubGateway) Paused(context.Context) (bool, error) {
	g.pausedCalls++
	return g.paused, nil
}
func (g *stubGateway) HasRole(context.Context, string, string) (bool, error) {
	g.hasRoleCalls++
	return !g.noRole, nil
}
func (g *stubGateway) GrantRole(context.Context, string, string) (chain.TxResult, error) {
	return chain.TxResult{Hash: g.hash}, nil
}
func (g *stubGateway) RevokeRole(context.Context, string, string) (chain.TxResult, error) {
	return chain.TxResult{Hash: g.hash}, nil
}
func (g *stubGateway) IssueCertificate(context.Context, string, string) (chain.TxResult, error) {
	g.issueCalls++
	if g.issueErr != nil {
		return chain.TxResult{}, g.issueErr
	}
	return chain.TxResult{Hash: g.hash}, nil
}
func (g *stubGateway) IssueBatchOfCertificates(context.Context, string) (chain.TxResult, error) {
	g.batchCalls++
	if g.batchErr != nil {
		return chain.TxResult{}, g.batchErr
	}
	return chain.TxResult{Hash: g.hash}, nil
}
func (g *stubGateway) VerifyCertificateByID(context.Context, string) (bool, error) {
	g.verifyCalls++
	return g.anchored, nil
}
func (g *stubGateway) VerifyCertificateInBatch(context.Context, int, string, []string) (bool, error) {
	return true, nil
}
func (g *stubGateway) RootLength(context.Context) (int, error) { return g.rootLength, nil }

func testService(t *testing.T, gw *stubGateway) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	return &Service{
		DB:        db,
		Submitter: chain.NewSubmitter(gw, "polygonscan.com", time.Millisecond),
		Codec:     encrypt.NewCodec("test-secret"),
		Cfg: &config.Config{
			MinCertLength: 12,
			MaxCertLength: 20,
			VerifyBaseURL: "https://verify.example.com",
			UploadsDir:    t.TempDir(),
			Network:       "polygonscan.com",
			IssuerRole:    "0x121bd4b100f8c56cbe7430652bd7c2cb4b08e5b1c36c8215b0f6b107d454e9b4",
		},
	}
}

func seedIssuer(t *testing.T, db *gorm.DB) models.Issuer {
	t.Helper()
	issuer := models.Issuer{
		Name:     "Acme Institute",
		Email:    "issuer@acme.test",
		IssuerID: "0x1111111111111111111111111111111111111111",
		Status:   models.IssuerApproved,
		Approved: true,
	}
	require.NoError(t, db.Create(&issuer).Error)
	return issuer
}

func validInput() IssueInput {
	return IssueInput{
		Email:             "issuer@acme.test",
		CertificateNumber: "CERT20240001",
		Name:              "Alice Example",
		CourseName:        "Distributed Systems",
		GrantDate:         "01/15/2024",
		ExpirationDate:    "01/15/2026",
	}
}

func TestIssueCertification(t *testing.T) {
	gw := &stubGateway{hash: "0xdeadbeef"}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB)

	res, aerr := svc.IssueCertification(context.Background(), validInput())
	require.Nil(t, aerr)

	assert.Equal(t, "0xdeadbeef", res.TransactionHash)
	assert.Equal(t, "https://polygonscan.com/tx/0xdeadbeef", res.PolygonLink)
	assert.Contains(t, res.VerifyURL, "https://verify.example.com/?q=")
	assert.NotEmpty(t, res.QRCode)
	assert.Equal(t, 1, gw.issueCalls)

	var rec models.Certificate
	require.NoError(t, svc.DB.Where("certificate_number = ?", "CERT20240001").First(&rec).Error)
	assert.Equal(t, "0xdeadbeef", rec.TransactionHash)
	assert.NotEmpty(t, rec.CertificateHash)

	var issuer models.Issuer
	require.NoError(t, svc.DB.Where("email = ?", "issuer@acme.test").First(&issuer).Error)
	assert.Equal(t, 1, issuer.CertificatesIssued)
}

func TestIssueCertificationDuplicate(t *testing.T) {
	gw := &stubGateway{hash: "0x1"}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB)

	_, aerr := svc.IssueCertification(context.Background(), validInput())
	require.Nil(t, aerr)

	_, aerr = svc.IssueCertification(context.Background(), validInput())
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgCertIssued, aerr.Message)
	assert.Equal(t, apperr.Validation, aerr.Kind)
	assert.Equal(t, 1, gw.issueCalls, "duplicate must be rejected before the chain call")
}

func TestIssueCertificationUnknownIssuer(t *testing.T) {
	gw := &stubGateway{hash: "0x1"}
	svc := testService(t, gw)

	_, aerr := svc.IssueCertification(context.Background(), validInput())
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgInvalidIssuer, aerr.Message)
	assert.Zero(t, gw.issueCalls)
}

func TestIssueCertificationUnapprovedIssuer(t *testing.T) {
	gw := &stubGateway{hash: "0x1"}
	svc := testService(t, gw)
	issuer := seedIssuer(t, svc.DB)
	require.NoError(t, svc.DB.Model(&issuer).Updates(map[string]interface{}{"approved": false, "status": models.IssuerRejected}).Error)

	_, aerr := svc.IssueCertification(context.Background(), validInput())
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgUnauthIssuer, aerr.Message)
	assert.Equal(t, apperr.Authorization, aerr.Kind)
}

func TestIssueCertificationDateOrder(t *testing.T) {
	gw := &stubGateway{hash: "0x1"}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB)

	in := validInput()
	in.GrantDate, in.ExpirationDate = in.ExpirationDate, in.GrantDate
	_, aerr := svc.IssueCertification(context.Background(), in)
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgProvideValidDates, aerr.Message)
	assert.Zero(t, gw.issueCalls)

	// equal dates are rejected as well
	in = validInput()
	in.ExpirationDate = in.GrantDate
	_, aerr = svc.IssueCertification(context.Background(), in)
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgProvideValidDates, aerr.Message)
}

func TestIssueCertificationLengthAndCharacters(t *testing.T) {
	gw := &stubGateway{hash: "0x1"}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB)

	in := validInput()
	in.CertificateNumber = "SHORT"
	_, aerr := svc.IssueCertification(context.Background(), in)
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgCertLength, aerr.Message)

	in = validInput()
	in.CertificateNumber = "CERT#2024*01"
	_, aerr = svc.IssueCertification(context.Background(), in)
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgCertBadCharacters, aerr.Message)
	assert.Zero(t, gw.issueCalls)
}

func TestIssueCertificationPaused(t *testing.T) {
	gw := &stubGateway{hash: "0x1", paused: true}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB)

	_, aerr := svc.IssueCertification(context.Background(), validInput())
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgOpsRestricted, aerr.Message)
	assert.Equal(t, apperr.Chain, aerr.Kind)
	assert.Zero(t, gw.issueCalls)
}

func TestIssueCertificationIssuerWithoutRole(t *testing.T) {
	gw := &stubGateway{hash: "0x1", noRole: true}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB)

	_, aerr := svc.IssueCertification(context.Background(), validInput())
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgIssuerUnauthorized, aerr.Message)
	assert.Equal(t, apperr.Authorization, aerr.Kind)
	assert.Equal(t, 1, gw.hasRoleCalls)
	assert.Zero(t, gw.issueCalls, "missing role must be caught before submission")
}

func TestIssueCertificationAlreadyAnchoredOnChain(t *testing.T) {
	gw := &stubGateway{hash: "0x1", anchored: true}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB)

	_, aerr := svc.IssueCertification(context.Background(), validInput())
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgCertIssued, aerr.Message)
	assert.Equal(t, "CERT20240001", aerr.Details)
	assert.Equal(t, 1, gw.verifyCalls)
	assert.Zero(t, gw.issueCalls, "anchored id must be caught before submission")
}

func TestIssueCertificationBadWalletAddress(t *testing.T) {
	gw := &stubGateway{hash: "0x1"}
	svc := testService(t, gw)
	issuer := seedIssuer(t, svc.DB)
	require.NoError(t, svc.DB.Model(&issuer).Update("issuer_id", "not-a-wallet").Error)

	_, aerr := svc.IssueCertification(context.Background(), validInput())
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgInvalidEthereum, aerr.Message)
	assert.Zero(t, gw.pausedCalls, "malformed wallet must be caught before any chain call")
	assert.Zero(t, gw.issueCalls)
}

func TestIssueCertificationServiceWalletFallback(t *testing.T) {
	gw := &stubGateway{hash: "0x1"}
	svc := testService(t, gw)
	issuer := seedIssuer(t, svc.DB)
	require.NoError(t, svc.DB.Model(&issuer).Update("issuer_id", "").Error)
	svc.Cfg.AccountAddress = "0x2222222222222222222222222222222222222222"

	_, aerr := svc.IssueCertification(context.Background(), validInput())
	require.Nil(t, aerr)
	assert.Equal(t, 1, gw.hasRoleCalls)
	assert.Equal(t, 1, gw.issueCalls)
}

func TestIssueCertificationRevertNotRetried(t *testing.T) {
	gw := &stubGateway{issueErr: &chain.RevertError{Reason: "certificate already anchored"}}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB)

	_, aerr := svc.IssueCertification(context.Background(), validInput())
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgFailedOpsAtBlockchain, aerr.Message)
	assert.Equal(t, "certificate already anchored", aerr.Details)
	assert.Equal(t, 1, gw.issueCalls, "reverts must not be retried")

	var n int64
	require.NoError(t, svc.DB.Model(&models.Certificate{}).Count(&n).Error)
	assert.Zero(t, n, "no record without a chain anchor")
}

func TestIssueCertificationRetryExhausted(t *testing.T) {
	gw := &stubGateway{issueErr: timeoutError{}}
	svc := testService(t, gw)
	seedIssuer(t, svc.DB)

	_, aerr := svc.IssueCertification(context.Background(), validInput())
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgFailedToIssueAfterRetry, aerr.Message)
	assert.Equal(t, apperr.ChainUnavailable, aerr.Kind)
	assert.Equal(t, 3, gw.issueCalls)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestMatchTemplates(t *testing.T) {
	inputs := []IssueInput{
		{CertificateNumber: "CERT20240001"},
		{CertificateNumber: "CERT20240002"},
	}
	b := &bundle{Templates: map[string]string{
		"CERT20240001": "/tmp/CERT20240001.pdf",
		"CERT20240003": "/tmp/CERT20240003.pdf",
	}}

	aerr := matchTemplates(inputs, b)
	require.NotNil(t, aerr)
	assert.Equal(t, codes.MsgInputRecordsNotMatched, aerr.Message)
	details := aerr.Details.(map[string][]string)
	assert.Equal(t, []string{"CERT20240002"}, details["missingTemplates"])
	assert.Equal(t, []string{"CERT20240003"}, details["unmatchedFiles"])

	b.Templates = map[string]string{
		"CERT20240001": "a.pdf",
		"CERT20240002": "b.pdf",
	}
	assert.Nil(t, matchTemplates(inputs, b))
}
