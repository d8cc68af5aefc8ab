package config

type Config struct {
	MysqlDataSource string
	DbSuffix        string
	StartBlock      int64
	EndBlock        int64
	TreeDB          struct {
		Driver string
		Option struct {
			Addr string
		}
	}
	Redis struct {
		Host     string
		Type     string
		Password string
	}
	ExcludedAddresses []string
}
