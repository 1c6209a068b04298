package cassandra

import (
	"github.com/gocql/gocql"
	"github.com/mohitkumar/pollster/persistence"
)

type baseDao struct {
	Session  *gocql.Session
	keyspace string
}

func newBaseDao(conf Config) (*baseDao, error) {
	cluster := gocql.NewCluster(conf.Addrs...)
	cluster.Keyspace = conf.KeySpace
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return &baseDao{
		Session:  session,
		keyspace: conf.KeySpace,
	}, nil
}

func (bs *baseDao) Close() {
	bs.Session.Close()
}
