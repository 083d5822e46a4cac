package database

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert detail: %w", &pq.Error{Code: "23505", Constraint: "beneficiary_details_beneficiary_id_key"})

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "beneficiary_details_beneficiary_id_key"))
	assert.False(t, IsUniqueViolation(err, "beneficiary_details_control_number_key"))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(fmt.Errorf("boom"), ""))
}
