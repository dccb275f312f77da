package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestFilterDocTranslation(t *testing.T) {
	f := Eq("documentId", "d1").
		In("status", "draft", "rejected").
		NotNull("completedAt").
		IsNull("reviewedAt")

	got := filterDoc(f)
	want := bson.D{
		{Key: "documentId", Value: "d1"},
		{Key: "status", Value: bson.M{"$in": []interface{}{"draft", "rejected"}}},
		{Key: "completedAt", Value: bson.M{"$ne": nil}},
		{Key: "reviewedAt", Value: nil},
	}
	require.Equal(t, want, got)
}

func TestSortDocTranslation(t *testing.T) {
	f := All().OrderBy("orderIndex", false).OrderBy("createdAt", true)
	require.Equal(t, bson.D{{Key: "orderIndex", Value: 1}, {Key: "createdAt", Value: -1}}, sortDoc(f))
	require.Empty(t, sortDoc(All()))
}

func TestFilterBuildersDoNotShareState(t *testing.T) {
	base := Eq("a", 1)
	x := base.Eq("b", 2)
	y := base.Eq("c", 3)
	require.Len(t, base.Preds, 1)
	require.Equal(t, "b", x.Preds[1].Field)
	require.Equal(t, "c", y.Preds[1].Field)
}

func TestKeyedByID(t *testing.T) {
	require.True(t, keyedByID(ByID("x")))
	require.False(t, keyedByID(Eq("documentId", "d")))
}

func TestInsertedIndexesSkipsDuplicates(t *testing.T) {
	dup := func(i int) mongo.BulkWriteError {
		return mongo.BulkWriteError{WriteError: mongo.WriteError{Index: i, Code: 11000}}
	}
	require.Equal(t, []int{0, 1, 2}, insertedIndexes(3, nil))
	require.Equal(t, []int{0, 2}, insertedIndexes(4, []mongo.BulkWriteError{dup(1), dup(3)}))
	require.Empty(t, insertedIndexes(2, []mongo.BulkWriteError{dup(0), dup(1)}))
}
