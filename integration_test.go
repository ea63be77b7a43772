package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"wallet-transfers/internal/config"
	"wallet-transfers/internal/server"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type IntegrationTestSuite struct {
	suite.Suite
	postgresContainer *tcpostgres.PostgresContainer
	serverInstance    *server.Server
	baseURL           string
	client            *http.Client
	db                *sql.DB
}

func (suite *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("wallet_transfers"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %s", err)
	}
	suite.postgresContainer = postgresContainer

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		suite.T().Fatalf("Failed to get container host: %s", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		suite.T().Fatalf("Failed to get mapped port: %s", err)
	}

	// Migrations run on server start
	cfg := &config.Config{
		DBHost:         host,
		DBPort:         port.Port(),
		DBUser:         "postgres",
		DBPassword:     "password",
		DBName:         "wallet_transfers",
		DBSSLMode:      "disable",
		ServerPort:     "0",
		CommissionRate: config.DefaultCommissionRate,
		Storage:        config.StoragePostgres,
		RunMigrations:  true,
		Notifier:       config.NotifierLog,
	}

	serverInstance, serverPort, err := server.StartServer(cfg)
	if err != nil {
		suite.T().Fatalf("Failed to start application server: %s", err)
	}
	suite.serverInstance = serverInstance
	suite.baseURL = "http://localhost:" + serverPort

	suite.db, err = sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		suite.T().Fatalf("Failed to open database: %s", err)
	}

	suite.client = &http.Client{
		Timeout: 30 * time.Second,
	}

	if err := suite.waitForServerReady(); err != nil {
		suite.T().Fatal(err)
	}
}

func (suite *IntegrationTestSuite) waitForServerReady() error {
	timeout := 30 * time.Second
	start := time.Now()

	for time.Since(start) < timeout {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if suite.db != nil {
		suite.db.Close()
	}

	if suite.serverInstance != nil {
		suite.serverInstance.Stop(ctx)
	}

	if suite.postgresContainer != nil {
		suite.postgresContainer.Terminate(ctx)
	}
}

// do sends a JSON request and returns the status code with the decoded body.
func (suite *IntegrationTestSuite) do(method, path string, reqBody interface{}) (int, map[string]interface{}) {
	var reader io.Reader
	if reqBody != nil {
		body, _ := json.Marshal(reqBody)
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, suite.baseURL+path, reader)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var response map[string]interface{}
	if err := json.Unmarshal(respBody, &response); err != nil {
		suite.T().Logf("Failed to parse response: %s", respBody)
	}
	return resp.StatusCode, response
}

func (suite *IntegrationTestSuite) createAccount(accountID int64, name, initialBalance string) {
	status, body := suite.do(http.MethodPost, "/accounts", map[string]interface{}{
		"account_id":      accountID,
		"name":            name,
		"email":           name + "@example.com",
		"initial_balance": initialBalance,
	})
	suite.Require().Equal(http.StatusCreated, status, "create account %d: %v", accountID, body)
}

func (suite *IntegrationTestSuite) transfer(senderID, receiverID int64, amount string) (int, map[string]interface{}) {
	return suite.do(http.MethodPost, "/transactions", map[string]interface{}{
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"amount":      amount,
	})
}

func (suite *IntegrationTestSuite) balance(accountID int64) string {
	status, body := suite.do(http.MethodGet, fmt.Sprintf("/accounts/%d", accountID), nil)
	suite.Require().Equal(http.StatusOK, status)
	return body["data"].(map[string]interface{})["balance"].(string)
}

func (suite *IntegrationTestSuite) countTransactions(accountID int64) int {
	var count int
	err := suite.db.QueryRow(
		`SELECT COUNT(*) FROM transactions WHERE sender_id = $1 OR receiver_id = $1`, accountID,
	).Scan(&count)
	suite.Require().NoError(err)
	return count
}

// Helper to compare decimal values properly
func (suite *IntegrationTestSuite) assertDecimalEqual(expected, actual string) {
	expectedDec := decimal.RequireFromString(expected)
	actualDec, err := decimal.NewFromString(actual)
	if err != nil {
		suite.T().Fatalf("Invalid actual decimal: %s", actual)
	}

	assert.True(suite.T(), expectedDec.Equal(actualDec),
		"Decimal values not equal: expected %s, got %s", expected, actual)
}

func errorCode(body map[string]interface{}) string {
	errInfo, ok := body["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errInfo["code"].(string)
	return code
}

// ------------------------------------------------------------------
// Steps below are helpers (non-test methods). They will be executed
// in the order invoked by TestFlow. Every step uses its own accounts.
// ------------------------------------------------------------------

func (suite *IntegrationTestSuite) stepHealthCheck() {
	status, body := suite.do(http.MethodGet, "/health", nil)
	assert.Equal(suite.T(), http.StatusOK, status)
	assert.Equal(suite.T(), "healthy", body["status"])
}

func (suite *IntegrationTestSuite) stepSuccessfulTransfer() {
	suite.createAccount(1, "ana", "5000.00")
	suite.createAccount(2, "bruno", "0.00")

	status, body := suite.transfer(1, 2, "100.00")
	suite.Require().Equal(http.StatusCreated, status, "%v", body)

	data := body["data"].(map[string]interface{})
	assert.Equal(suite.T(), "completed", data["status"])
	assert.Equal(suite.T(), "100.00", data["amount"])
	assert.Equal(suite.T(), "1.50", data["commission_fee"])
	assert.Equal(suite.T(), "101.50", data["total_deducted"])
	assert.Equal(suite.T(), "bruno", data["receiver"].(map[string]interface{})["name"])

	suite.assertDecimalEqual("4898.50", suite.balance(1))
	suite.assertDecimalEqual("100.00", suite.balance(2))

	status, body = suite.do(http.MethodGet, "/accounts/2/transactions", nil)
	suite.Require().Equal(http.StatusOK, status)
	items := body["data"].([]interface{})
	suite.Require().Len(items, 1)
	assert.Equal(suite.T(), "received", items[0].(map[string]interface{})["type"])
	assert.Equal(suite.T(), data["transaction_id"], items[0].(map[string]interface{})["transaction_id"])
}

func (suite *IntegrationTestSuite) stepFeeRounding() {
	suite.createAccount(10, "carla", "1.00")
	suite.createAccount(11, "davi", "0.00")

	// 0.33 * 0.015 = 0.00495, rounds to 0.00
	status, body := suite.transfer(10, 11, "0.33")
	suite.Require().Equal(http.StatusCreated, status, "%v", body)
	data := body["data"].(map[string]interface{})
	assert.Equal(suite.T(), "0.00", data["commission_fee"])
	assert.Equal(suite.T(), "0.33", data["total_deducted"])

	suite.assertDecimalEqual("0.67", suite.balance(10))
	suite.assertDecimalEqual("0.33", suite.balance(11))
}

func (suite *IntegrationTestSuite) stepInsufficientBalance() {
	suite.createAccount(20, "elis", "50.00")
	suite.createAccount(21, "fabio", "0.00")

	status, body := suite.transfer(20, 21, "100.00")
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, status)

	errInfo := body["error"].(map[string]interface{})
	assert.Equal(suite.T(), "insufficient_balance", errInfo["code"])
	assert.Equal(suite.T(), "101.50", errInfo["required"])
	assert.Equal(suite.T(), "50.00", errInfo["available"])

	suite.assertDecimalEqual("50.00", suite.balance(20))
	suite.assertDecimalEqual("0.00", suite.balance(21))
	assert.Equal(suite.T(), 0, suite.countTransactions(20))
}

func (suite *IntegrationTestSuite) stepExactBalance() {
	suite.createAccount(30, "gil", "101.50")
	suite.createAccount(31, "hana", "0.00")

	status, body := suite.transfer(30, 31, "100.00")
	suite.Require().Equal(http.StatusCreated, status, "%v", body)
	suite.assertDecimalEqual("0.00", suite.balance(30))
}

func (suite *IntegrationTestSuite) stepRejectedRequests() {
	suite.createAccount(40, "ivo", "100.00")

	tests := []struct {
		name       string
		receiverID int64
		amount     string
		wantStatus int
		wantCode   string
	}{
		{"same account", 40, "10.00", http.StatusBadRequest, "same_account_transfer"},
		{"zero amount", 1, "0", http.StatusBadRequest, "invalid_amount"},
		{"negative amount", 1, "-10.00", http.StatusBadRequest, "invalid_amount"},
		{"three decimals", 1, "1.005", http.StatusBadRequest, "invalid_amount"},
		{"unknown receiver", 999, "10.00", http.StatusNotFound, "receiver_not_found"},
	}

	for _, tt := range tests {
		status, body := suite.transfer(40, tt.receiverID, tt.amount)
		assert.Equal(suite.T(), tt.wantStatus, status, tt.name)
		assert.Equal(suite.T(), tt.wantCode, errorCode(body), tt.name)
	}

	status, body := suite.transfer(998, 40, "10.00")
	assert.Equal(suite.T(), http.StatusNotFound, status)
	assert.Equal(suite.T(), "sender_not_found", errorCode(body))

	suite.assertDecimalEqual("100.00", suite.balance(40))
	assert.Equal(suite.T(), 0, suite.countTransactions(40))
}

func (suite *IntegrationTestSuite) stepDuplicateAccountCreation() {
	suite.createAccount(50, "joana", "10.00")

	status, body := suite.do(http.MethodPost, "/accounts", map[string]interface{}{
		"account_id":      50,
		"initial_balance": "20.00",
	})
	assert.Equal(suite.T(), http.StatusConflict, status)
	assert.Equal(suite.T(), "duplicate_account", errorCode(body))
	suite.assertDecimalEqual("10.00", suite.balance(50))
}

func (suite *IntegrationTestSuite) stepConcurrentDebits() {
	suite.createAccount(60, "kaio", "100.00")
	suite.createAccount(61, "lia", "0.00")

	const attempts = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = make(map[int]int)
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := suite.transfer(60, 61, "10.00")
			mu.Lock()
			statuses[status]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Each transfer costs 10.15, so exactly nine fit in 100.00
	assert.Equal(suite.T(), 9, statuses[http.StatusCreated])
	assert.Equal(suite.T(), attempts-9, statuses[http.StatusUnprocessableEntity])
	suite.assertDecimalEqual("8.65", suite.balance(60))
	suite.assertDecimalEqual("90.00", suite.balance(61))
	assert.Equal(suite.T(), 9, suite.countTransactions(60))
}

func (suite *IntegrationTestSuite) stepOppositeDirections() {
	suite.createAccount(70, "mara", "1000.00")
	suite.createAccount(71, "nuno", "1000.00")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			status, body := suite.transfer(70, 71, "1.00")
			assert.Equal(suite.T(), http.StatusCreated, status, "%v", body)
		}()
		go func() {
			defer wg.Done()
			status, body := suite.transfer(71, 70, "1.00")
			assert.Equal(suite.T(), http.StatusCreated, status, "%v", body)
		}()
	}
	wg.Wait()

	// Fee on 1.00 is 0.015, which rounds to 0.02
	suite.assertDecimalEqual("999.80", suite.balance(70))
	suite.assertDecimalEqual("999.80", suite.balance(71))
}

func (suite *IntegrationTestSuite) stepFailureAfterDebitRollsBack() {
	suite.createAccount(80, "otto", "500.00")
	suite.createAccount(81, "paula", "0.00")

	_, err := suite.db.Exec(`
		CREATE OR REPLACE FUNCTION fail_marked_transfer() RETURNS trigger AS $$
		BEGIN
			IF NEW.amount = 13.13 THEN
				RAISE EXCEPTION 'forced record failure';
			END IF;
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;

		CREATE TRIGGER fail_marked_transfer BEFORE INSERT ON transactions
			FOR EACH ROW EXECUTE FUNCTION fail_marked_transfer();
	`)
	suite.Require().NoError(err)
	defer func() {
		_, err := suite.db.Exec(`DROP TRIGGER IF EXISTS fail_marked_transfer ON transactions`)
		suite.NoError(err)
	}()

	status, body := suite.transfer(80, 81, "13.13")
	assert.Equal(suite.T(), http.StatusInternalServerError, status)
	assert.Equal(suite.T(), "transfer_failed", errorCode(body))
	errInfo := body["error"].(map[string]interface{})
	assert.Equal(suite.T(), "Something went wrong. Please try again later.", errInfo["message"])
	assert.Empty(suite.T(), errInfo["details"])

	suite.assertDecimalEqual("500.00", suite.balance(80))
	suite.assertDecimalEqual("0.00", suite.balance(81))
	assert.Equal(suite.T(), 0, suite.countTransactions(80))

	status, _ = suite.transfer(80, 81, "13.14")
	assert.Equal(suite.T(), http.StatusCreated, status)
}

func (suite *IntegrationTestSuite) stepHistoryPagination() {
	suite.createAccount(90, "quim", "100.00")
	suite.createAccount(91, "rita", "100.00")

	for i := 0; i < 3; i++ {
		status, _ := suite.transfer(90, 91, "1.00")
		suite.Require().Equal(http.StatusCreated, status)
	}
	status, _ := suite.transfer(91, 90, "5.00")
	suite.Require().Equal(http.StatusCreated, status)

	status, body := suite.do(http.MethodGet, "/accounts/90/transactions?page=1&per_page=2", nil)
	suite.Require().Equal(http.StatusOK, status)

	items := body["data"].([]interface{})
	suite.Require().Len(items, 2)
	newest := items[0].(map[string]interface{})
	assert.Equal(suite.T(), "received", newest["type"])
	assert.Equal(suite.T(), "5.00", newest["amount"])
	assert.Equal(suite.T(), "sent", items[1].(map[string]interface{})["type"])

	meta := body["meta"].(map[string]interface{})
	assert.Equal(suite.T(), float64(4), meta["total"])
	assert.Equal(suite.T(), float64(2), meta["per_page"])

	status, body = suite.do(http.MethodGet, "/accounts/90/transactions?page=2&per_page=2", nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Len(suite.T(), body["data"].([]interface{}), 2)
}

func (suite *IntegrationTestSuite) TestFlow() {
	suite.stepHealthCheck()
	suite.stepSuccessfulTransfer()
	suite.stepFeeRounding()
	suite.stepInsufficientBalance()
	suite.stepExactBalance()
	suite.stepRejectedRequests()
	suite.stepDuplicateAccountCreation()
	suite.stepConcurrentDebits()
	suite.stepOppositeDirections()
	suite.stepFailureAfterDebitRollsBack()
	suite.stepHistoryPagination()
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
