package pgx

const nodeColumns = `id, label, merge_key, properties`

const mergeNodeSQL = `
INSERT INTO graph_nodes (label, merge_key, properties)
VALUES ($1, $2, $3::jsonb || $4::jsonb)
ON CONFLICT (label, merge_key) DO UPDATE
SET properties = graph_nodes.properties || $4::jsonb,
    updated_at = now()
RETURNING id, properties, (xmax = 0) AS created;
`

const mergeEdgeSQL = `
INSERT INTO graph_edges (rel_type, source_id, target_id, properties)
VALUES ($1, $2, $3, $4::jsonb)
ON CONFLICT (source_id, target_id, rel_type) DO UPDATE
SET properties = graph_edges.properties || EXCLUDED.properties
RETURNING (xmax = 0) AS created;
`

const getNodeSQL = `
SELECT ` + nodeColumns + `
FROM graph_nodes
WHERE label = $1 AND merge_key = $2;
`

const getNodeByIDSQL = `
SELECT ` + nodeColumns + `
FROM graph_nodes
WHERE id = $1;
`

const listNodesSQL = `
SELECT ` + nodeColumns + `
FROM graph_nodes
WHERE label = $1
ORDER BY id;
`

const findNodesByPropertySQL = `
SELECT ` + nodeColumns + `
FROM graph_nodes
WHERE label = $1 AND properties ->> $2::text = $3::text
ORDER BY id;
`

const findNodesKeyContainedSQL = `
SELECT ` + nodeColumns + `
FROM graph_nodes
WHERE label = $1
  AND merge_key <> ''
  AND strpos($2::text, merge_key) > 0
ORDER BY id;
`

const findNodesKeyOverlapsSQL = `
SELECT ` + nodeColumns + `
FROM graph_nodes
WHERE label = $1
  AND merge_key <> ''
  AND (strpos($2::text, merge_key) > 0 OR strpos(merge_key, $2::text) > 0)
ORDER BY id;
`

const neighborsSQL = `
SELECT DISTINCT n.id, n.label, n.merge_key, n.properties
FROM graph_edges e
JOIN graph_nodes n
  ON n.id = CASE WHEN e.source_id = $1 THEN e.target_id ELSE e.source_id END
WHERE (e.source_id = $1 OR e.target_id = $1)
  AND n.id <> $1
  AND (cardinality($2::text[]) = 0 OR e.rel_type = ANY($2::text[]))
  AND (cardinality($3::text[]) = 0 OR n.label = ANY($3::text[]))
  AND NOT (n.label = ANY($4::text[]))
ORDER BY n.id;
`

const reachableSQL = `
WITH RECURSIVE walk(id, depth) AS (
    SELECT $1::bigint, 0
  UNION
    SELECT CASE WHEN e.source_id = w.id THEN e.target_id ELSE e.source_id END,
           w.depth + 1
    FROM walk w
    JOIN graph_edges e ON e.source_id = w.id OR e.target_id = w.id
    WHERE w.depth < $2::int
      AND (cardinality($3::text[]) = 0 OR e.rel_type = ANY($3::text[]))
)
SELECT n.id, n.label, n.merge_key, n.properties
FROM (SELECT id, min(depth) AS depth FROM walk GROUP BY id) r
JOIN graph_nodes n ON n.id = r.id
WHERE r.id <> $1::bigint
  AND ($4::text = '' OR n.label = $4::text)
ORDER BY r.depth, n.id;
`

const listEdgesSQL = `
SELECT id, rel_type, source_id, target_id, properties
FROM graph_edges
WHERE $1::text = '' OR rel_type = $1::text
ORDER BY id;
`

const countNodesByLabelSQL = `
SELECT label, count(*)
FROM graph_nodes
GROUP BY label;
`

const countEdgesByTypeSQL = `
SELECT rel_type, count(*)
FROM graph_edges
GROUP BY rel_type;
`

const wipeSQL = `TRUNCATE graph_edges, graph_nodes RESTART IDENTITY;`
