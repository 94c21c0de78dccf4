package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/marketplace-payments/kafka"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"migrate", "sweep", "credentials", "events"})
}

func TestCredentialsSet_RequiresFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"credentials", "set", "--short-code", "174379"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant")
}

func TestCredentialsSet_RequiresSecrets(t *testing.T) {
	t.Setenv("MPESA_CONSUMER_KEY", "")
	t.Setenv("MPESA_CONSUMER_SECRET", "")
	t.Setenv("MPESA_PASS_KEY", "")

	root := newRootCmd()
	root.SetArgs([]string{"credentials", "set", "--tenant", "platform", "--short-code", "174379", "--consumer-key", "ck"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestSweep_RejectsNonPositiveAge(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"sweep", "--older-than", "0s"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--older-than")
}

func TestFlagOrEnv(t *testing.T) {
	t.Setenv("PAYMENTCTL_TEST_VALUE", "from-env")
	assert.Equal(t, "from-flag", flagOrEnv("from-flag", "PAYMENTCTL_TEST_VALUE"))
	assert.Equal(t, "from-env", flagOrEnv("", "PAYMENTCTL_TEST_VALUE"))
}

func TestWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeEvent(&buf, kafka.PaymentResolvedEvent{
		EventType: kafka.EventTypePaymentResolved,
		OrderID:   "O1",
		Status:    "succeeded",
	}))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "O1", decoded["order_id"])
	assert.Equal(t, byte('\n'), buf.Bytes()[buf.Len()-1])
}
