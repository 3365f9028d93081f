package report

import (
	"fmt"

	"github.com/JonMunkholm/salesfeed/internal/database"
)

// Each query returns yesterday's sales with the nine output columns, aliased
// to their exact names. "Yesterday" is evaluated by the server; DATA VENDA is
// overwritten by the fetcher with the locally computed date.
//
// Sales without a branch are dropped. Products without a color are kept with
// a null color so the formatter can zero the code.

const salesQuerySQLServer = `
SELECT
    p.id              AS [SKU],
    p.nome            AS [MODELO FORNECEDOR],
    p.cor_id          AS [COR FORNECEDOR],
    c.nome            AS [COR],
    p.tamanho         AS [TAMANHO],
    FORMAT(v.data_venda, 'ddMMyyyy') AS [DATA VENDA],
    f.cnpj            AS [CNPJ FILIAL],
    v.quantidade      AS [QUANTIDADE VENDIDA],
    v.preco_unitario  AS [VALOR VENDA]
FROM vendas v
JOIN produtos p ON p.id = v.produto_id
LEFT JOIN cores c ON c.id = p.cor_id
JOIN filiais f ON f.id = v.filial_id
WHERE v.data_venda = CAST(DATEADD(day, -1, GETDATE()) AS DATE)
ORDER BY v.id`

const salesQueryPostgres = `
SELECT
    p.id              AS "SKU",
    p.nome            AS "MODELO FORNECEDOR",
    p.cor_id          AS "COR FORNECEDOR",
    c.nome            AS "COR",
    p.tamanho         AS "TAMANHO",
    to_char(v.data_venda, 'DDMMYYYY') AS "DATA VENDA",
    f.cnpj            AS "CNPJ FILIAL",
    v.quantidade      AS "QUANTIDADE VENDIDA",
    v.preco_unitario  AS "VALOR VENDA"
FROM vendas v
JOIN produtos p ON p.id = v.produto_id
LEFT JOIN cores c ON c.id = p.cor_id
JOIN filiais f ON f.id = v.filial_id
WHERE v.data_venda = CURRENT_DATE - 1
ORDER BY v.id`

const salesQuerySQLite = `
SELECT
    p.id              AS "SKU",
    p.nome            AS "MODELO FORNECEDOR",
    p.cor_id          AS "COR FORNECEDOR",
    c.nome            AS "COR",
    p.tamanho         AS "TAMANHO",
    strftime('%d%m%Y', v.data_venda) AS "DATA VENDA",
    f.cnpj            AS "CNPJ FILIAL",
    v.quantidade      AS "QUANTIDADE VENDIDA",
    v.preco_unitario  AS "VALOR VENDA"
FROM vendas v
JOIN produtos p ON p.id = v.produto_id
LEFT JOIN cores c ON c.id = p.cor_id
JOIN filiais f ON f.id = v.filial_id
WHERE v.data_venda = date('now', 'localtime', '-1 day')
ORDER BY v.id`

// SalesQuery returns the fixed sales query for the dialect.
func SalesQuery(d database.Dialect) (string, error) {
	switch d {
	case database.SQLServer:
		return salesQuerySQLServer, nil
	case database.Postgres:
		return salesQueryPostgres, nil
	case database.SQLite:
		return salesQuerySQLite, nil
	default:
		return "", fmt.Errorf("no sales query for dialect %q", d)
	}
}
