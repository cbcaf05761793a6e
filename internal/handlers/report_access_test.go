// internal/handlers/report_access_test.go
package handlers

import (
	"testing"

	"abiahub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestReportReadScope(t *testing.T) {
	userID := primitive.NewObjectID()
	lgaID := primitive.NewObjectID()

	t.Run("anonymous callers see anonymous reports only", func(t *testing.T) {
		scope := reportReadScope(false, primitive.NilObjectID, models.RoleCitizen, nil)
		assert.Equal(t, bson.M{"is_anonymous": true}, scope)
	})

	t.Run("citizens see their own and anonymous reports", func(t *testing.T) {
		scope := reportReadScope(true, userID, models.RoleCitizen, nil)
		require.Contains(t, scope, "$or")
		clauses := scope["$or"].([]bson.M)
		assert.Contains(t, clauses, bson.M{"reporter_id": userID})
		assert.Contains(t, clauses, bson.M{"is_anonymous": true})
	})

	t.Run("lga officials are pinned to their lga", func(t *testing.T) {
		scope := reportReadScope(true, userID, models.RoleLGAOfficial, &lgaID)
		assert.Equal(t, bson.M{"lga_id": lgaID}, scope)
	})

	t.Run("lga official without an lga falls back to citizen scope", func(t *testing.T) {
		scope := reportReadScope(true, userID, models.RoleLGAOfficial, nil)
		assert.Contains(t, scope, "$or")
	})

	t.Run("view-all roles are unrestricted", func(t *testing.T) {
		for _, role := range []models.UserRole{
			models.RoleStateOfficial, models.RoleGovtHouse, models.RoleAssembly, models.RoleAdmin,
		} {
			assert.Empty(t, reportReadScope(true, userID, role, nil), role)
		}
	})
}

func TestCanViewReport(t *testing.T) {
	reporterID := primitive.NewObjectID()
	assigneeID := primitive.NewObjectID()
	strangerID := primitive.NewObjectID()

	private := &models.Report{ReporterID: &reporterID, AssignedTo: &assigneeID}
	public := &models.Report{IsAnonymous: true}

	assert.True(t, canViewReport(public, false, primitive.NilObjectID, models.RoleCitizen))
	assert.False(t, canViewReport(private, false, primitive.NilObjectID, models.RoleCitizen))
	assert.True(t, canViewReport(private, true, reporterID, models.RoleCitizen))
	assert.True(t, canViewReport(private, true, assigneeID, models.RoleCitizen))
	assert.False(t, canViewReport(private, true, strangerID, models.RoleCitizen))
	assert.True(t, canViewReport(private, true, strangerID, models.RoleLGAOfficial))
	assert.True(t, canViewReport(private, true, strangerID, models.RoleAdmin))
}

func TestUpvoteClaim(t *testing.T) {
	reportID := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	filter, update := upvoteClaim(reportID, userID)

	// The filter excludes reports the user already voted on, so two
	// concurrent votes cannot both match the document.
	assert.Equal(t, reportID, filter["_id"])
	assert.Equal(t, bson.M{"$ne": userID}, filter["upvotes"])
	assert.Equal(t, bson.M{"upvotes": userID}, update["$addToSet"])
	assert.Equal(t, bson.M{"upvote_count": 1}, update["$inc"])
}

func TestRankSimilar(t *testing.T) {
	base := &models.Report{Location: models.NewPoint(7.49, 5.53)}
	near := models.Report{Title: "near", Location: models.NewPoint(7.50, 5.54)}
	far := models.Report{Title: "far", Location: models.NewPoint(7.37, 5.11)}
	unlocated := models.Report{Title: "unlocated"}

	ranked := rankSimilar(base, []models.Report{far, unlocated, near}, 5)
	require.Len(t, ranked, 3)
	assert.Equal(t, "near", ranked[0].Title)
	assert.Equal(t, "far", ranked[1].Title)
	assert.Equal(t, "unlocated", ranked[2].Title)

	ranked = rankSimilar(base, []models.Report{far, unlocated, near}, 2)
	assert.Len(t, ranked, 2)

	// Without a base location the recency order is kept.
	ranked = rankSimilar(&models.Report{}, []models.Report{far, near}, 5)
	assert.Equal(t, "far", ranked[0].Title)
}
