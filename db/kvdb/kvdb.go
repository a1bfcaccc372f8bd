package kvdb

const (
	// SavedSearchesBucket holds saved searches keyed by "<ownerID>/<id>".
	SavedSearchesBucket = "saved_searches"
)

type DB interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	List(bucket string, prefix string) (map[string]string, error)
	Close() error
}
