package cassandra

type Config struct {
	Addrs    []string
	KeySpace string
}
